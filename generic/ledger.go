/*
ledger.go - Price-ordered stock ledger

PURPOSE:
  Each product owns a StockLedger: the collection of supply batches it
  currently holds. Batches are kept in a fixed total order (unit price,
  then product key, partner key, quantity) that is used both for
  allocation and for display.

CRITICAL INVARIANTS:
  1. Stock = sum of batch quantities, never negative
  2. No empty batches: a batch that reaches zero is evicted immediately
  3. Deposits never merge: two batches with identical product, partner and
     price are distinct entries
  4. Withdrawals are all-or-nothing: asking for more than the stock fails
     without touching any batch

WITHDRAWAL:
  Units are taken from the cheapest batch first. The caller receives the
  exact sum paid across the batches actually consumed, which realizes
  weighted-average-cost accounting without storing an average:

    batches: [3 @ 10, 5 @ 12]
    Withdraw(4) = 3*10 + 1*12 = 42, leaving [4 @ 12]

SEE ALSO:
  - warehouse/product.go: Products own one ledger each
  - errors.go: InsufficientStockError
*/
package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BATCH - A priced parcel of one product supplied by one partner
// =============================================================================

// Batch is an immutable product/partner/price triple plus a quantity counter.
// Equality and ordering are structural.
type Batch struct {
	ProductKey ProductKey
	PartnerKey PartnerKey
	Price      decimal.Decimal
	Quantity   int
}

// Equal compares batches structurally.
func (b Batch) Equal(other Batch) bool {
	return CompareBatches(b, other) == 0
}

func (b Batch) IsEmpty() bool { return b.Quantity == 0 }

// CompareBatches is the total order used for allocation and display:
// price ascending, then product key, partner key and quantity.
func CompareBatches(a, b Batch) int {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c
	}
	if c := CompareKeys(string(a.ProductKey), string(b.ProductKey)); c != 0 {
		return c
	}
	if c := CompareKeys(string(a.PartnerKey), string(b.PartnerKey)); c != 0 {
		return c
	}
	switch {
	case a.Quantity < b.Quantity:
		return -1
	case a.Quantity > b.Quantity:
		return 1
	}
	return 0
}

// SortBatches sorts in place using CompareBatches.
func SortBatches(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return CompareBatches(batches[i], batches[j]) < 0
	})
}

// =============================================================================
// STOCK LEDGER
// =============================================================================

// StockLedger is the ordered batch collection owned by one product.
type StockLedger struct {
	product ProductKey
	batches []*Batch
}

func NewStockLedger(product ProductKey) *StockLedger {
	return &StockLedger{product: product}
}

// Deposit always creates a new batch. Non-positive quantities are ignored.
func (l *StockLedger) Deposit(units int, partner PartnerKey, price decimal.Decimal) {
	if units <= 0 {
		return
	}
	b := &Batch{ProductKey: l.product, PartnerKey: partner, Price: price, Quantity: units}

	i := sort.Search(len(l.batches), func(i int) bool {
		return CompareBatches(*l.batches[i], *b) > 0
	})
	l.batches = append(l.batches, nil)
	copy(l.batches[i+1:], l.batches[i:])
	l.batches[i] = b
}

// Withdraw removes quantity units, cheapest first, and returns what they
// cost. It fails without side effects when quantity exceeds the stock.
func (l *StockLedger) Withdraw(quantity int) (decimal.Decimal, error) {
	total := decimal.Zero
	if quantity <= 0 {
		return total, nil
	}
	if available := l.Stock(); quantity > available {
		return total, &InsufficientStockError{ProductKey: l.product, Requested: quantity, Available: available}
	}

	remaining := quantity
	for remaining > 0 {
		// Shrinking the head batch never moves it past its neighbours.
		head := l.batches[0]
		take := min(remaining, head.Quantity)
		total = total.Add(Total(head.Price, take))
		head.Quantity -= take
		remaining -= take
		if head.Quantity == 0 {
			l.batches = l.batches[1:]
		}
	}
	return total, nil
}

func (l *StockLedger) Stock() int {
	stock := 0
	for _, b := range l.batches {
		stock += b.Quantity
	}
	return stock
}

func (l *StockLedger) HasStock() bool { return l.Stock() > 0 }

// LowestPrice is the unit price of the cheapest batch, or zero when the
// ledger is empty. Callers that care about the difference check HasStock.
func (l *StockLedger) LowestPrice() decimal.Decimal {
	if len(l.batches) == 0 {
		return decimal.Zero
	}
	return l.batches[0].Price
}

// Batches returns copies of the batches in ledger order.
func (l *StockLedger) Batches() []Batch {
	out := make([]Batch, len(l.batches))
	for i, b := range l.batches {
		out[i] = *b
	}
	return out
}

// BatchesUnder returns the batches priced strictly below price.
func (l *StockLedger) BatchesUnder(price decimal.Decimal) []Batch {
	var out []Batch
	for _, b := range l.batches {
		if !b.Price.LessThan(price) {
			break
		}
		out = append(out, *b)
	}
	return out
}

// BatchesFrom returns the batches supplied by partner, in ledger order.
func (l *StockLedger) BatchesFrom(partner PartnerKey) []Batch {
	var out []Batch
	for _, b := range l.batches {
		if b.PartnerKey.Equal(partner) {
			out = append(out, *b)
		}
	}
	return out
}
