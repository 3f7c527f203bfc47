package warehouse

import (
	"fmt"
	"strings"

	"github.com/warp/wholesale-engine/generic"
)

// Canonical pipe-delimited records. Prices are rounded to integers.
//
//	ACQUISITION|id|partner|product|quantity|price|paymentDate
//	SALE|id|partner|product|quantity|base|current|deadline[|paymentDate]
//	BREAKDOWN_SALE|id|partner|product|quantity|base|effective|paymentDate|c:q:p#...
//	key|name|address|TIER|points|acquisitions|sales|paid
//	product|partner|price|quantity

// RenderTransaction renders tx as of today.
func (w *Warehouse) RenderTransaction(tx Transaction) string {
	head := fmt.Sprintf("%s|%d|%s|%s|%d", tx.Kind(), tx.ID(), tx.Partner(), tx.Product(), tx.Quantity())
	paid, _ := tx.PaymentDate()

	switch t := tx.(type) {
	case *Acquisition:
		return fmt.Sprintf("%s|%s|%s", head, generic.Rounded(t.Price()), paid)
	case *CreditSale:
		s := fmt.Sprintf("%s|%s|%s|%s", head, generic.Rounded(t.basePrice), generic.Rounded(w.Price(t)), t.deadline)
		if t.IsPaid() {
			s += "|" + paid.String()
		}
		return s
	case *BreakdownSale:
		lines := make([]string, len(t.lines))
		for i, l := range t.lines {
			lines[i] = fmt.Sprintf("%s:%d:%s", l.Product, l.Quantity, generic.Rounded(l.Value()))
		}
		return fmt.Sprintf("%s|%s|%s|%s|%s", head,
			generic.Rounded(t.basePrice), generic.Rounded(t.effective), paid, strings.Join(lines, "#"))
	}
	return head
}

// RenderPartner renders a partner record with its trade summary.
func (w *Warehouse) RenderPartner(key generic.PartnerKey) (string, error) {
	p, err := w.Partner(key)
	if err != nil {
		return "", err
	}
	v, err := w.PartnerValues(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		p.key, p.name, p.address, p.status,
		generic.Rounded(v.Acquisitions), generic.Rounded(v.Sales), generic.Rounded(v.PaidSales)), nil
}

func RenderBatch(b generic.Batch) string {
	return fmt.Sprintf("%s|%s|%s|%d", b.ProductKey, b.PartnerKey, generic.Rounded(b.Price), b.Quantity)
}
