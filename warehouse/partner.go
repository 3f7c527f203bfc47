package warehouse

import (
	"github.com/shopspring/decimal"
	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/loyalty"
)

// Partner is a supplier and customer of the warehouse. Its batches are not
// stored here: they are derived from the product ledgers by supplier key.
type Partner struct {
	key     generic.PartnerKey
	name    string
	address string
	status  loyalty.Status

	acquisitions []generic.TransactionID
	sales        []generic.TransactionID // credit sales and breakdown sales

	subscriptions map[string]struct{} // normalized product keys
	notifications []Notification
}

func newPartner(key generic.PartnerKey, name, address string) *Partner {
	return &Partner{
		key:           key,
		name:          name,
		address:       address,
		status:        loyalty.NewStatus(key),
		subscriptions: make(map[string]struct{}),
	}
}

func (p *Partner) Key() generic.PartnerKey { return p.key }
func (p *Partner) Name() string            { return p.name }
func (p *Partner) Address() string         { return p.address }
func (p *Partner) Status() loyalty.Status  { return p.status }

// Acquisitions returns the ids of acquisitions from this partner, in id order.
func (p *Partner) Acquisitions() []generic.TransactionID {
	return append([]generic.TransactionID(nil), p.acquisitions...)
}

// Sales returns the ids of every sale to this partner, in id order.
func (p *Partner) Sales() []generic.TransactionID {
	return append([]generic.TransactionID(nil), p.sales...)
}

// IsSubscribed reports whether the partner wants notifications for product.
func (p *Partner) IsSubscribed(product generic.ProductKey) bool {
	_, ok := p.subscriptions[product.Normalize()]
	return ok
}

// PendingNotifications returns undelivered notifications without draining them.
func (p *Partner) PendingNotifications() []Notification {
	return append([]Notification(nil), p.notifications...)
}

func (p *Partner) toggle(product generic.ProductKey) bool {
	k := product.Normalize()
	if _, ok := p.subscriptions[k]; ok {
		delete(p.subscriptions, k)
		return false
	}
	p.subscriptions[k] = struct{}{}
	return true
}

func (p *Partner) drain() []Notification {
	out := p.notifications
	p.notifications = nil
	return out
}

// PartnerValues summarizes a partner's trade with the warehouse.
type PartnerValues struct {
	Acquisitions decimal.Decimal // Σ acquisition prices
	Sales        decimal.Decimal // Σ credit-sale base prices
	PaidSales    decimal.Decimal // Σ settled credit-sale prices
}
