/*
transaction.go - The three transaction variants

PURPOSE:
  A transaction is created once and never deleted. Acquisitions and
  breakdown sales are settled at creation; a credit sale goes from unpaid
  to paid exactly once.

VARIANTS:
  Acquisition:   price = unit price × quantity
  CreditSale:    base = cost withdrawn from stock; price recomputed on
                 every read from the partner's status and the clock
  BreakdownSale: base and effective price fixed at creation from the
                 component insertion prices

  The set is closed: Transaction has an unexported method, and behaviour
  that differs by variant is a type switch in the warehouse.

SEE ALSO:
  - warehouse.go: Registration and settlement
  - loyalty/pricing.go: The credit-sale price function
*/
package warehouse

import (
	"github.com/shopspring/decimal"
	"github.com/warp/wholesale-engine/generic"
)

// TransactionKind tags a transaction variant.
type TransactionKind string

const (
	KindAcquisition   TransactionKind = "ACQUISITION"
	KindCreditSale    TransactionKind = "SALE"
	KindBreakdownSale TransactionKind = "BREAKDOWN_SALE"
)

// Transaction is implemented by *Acquisition, *CreditSale and *BreakdownSale.
type Transaction interface {
	ID() generic.TransactionID
	Kind() TransactionKind
	Partner() generic.PartnerKey
	Product() generic.ProductKey
	Quantity() int
	// PaymentDate returns the settlement day, false while unpaid.
	PaymentDate() (generic.Day, bool)
	IsPaid() bool

	sealed()
}

type header struct {
	id       generic.TransactionID
	partner  generic.PartnerKey
	product  generic.ProductKey
	quantity int
	paidOn   *generic.Day
}

func (h *header) ID() generic.TransactionID   { return h.id }
func (h *header) Partner() generic.PartnerKey { return h.partner }
func (h *header) Product() generic.ProductKey { return h.product }
func (h *header) Quantity() int               { return h.quantity }
func (h *header) IsPaid() bool                { return h.paidOn != nil }
func (h *header) sealed()                     {}

func (h *header) PaymentDate() (generic.Day, bool) {
	if h.paidOn == nil {
		return 0, false
	}
	return *h.paidOn, true
}

func (h *header) pay(day generic.Day) {
	h.paidOn = &day
}

// =============================================================================
// ACQUISITION
// =============================================================================

type Acquisition struct {
	header
	unitPrice decimal.Decimal
}

func (*Acquisition) Kind() TransactionKind { return KindAcquisition }

func (a *Acquisition) UnitPrice() decimal.Decimal { return a.unitPrice }

// Price is what the warehouse paid.
func (a *Acquisition) Price() decimal.Decimal { return generic.Total(a.unitPrice, a.quantity) }

// =============================================================================
// CREDIT SALE
// =============================================================================

type CreditSale struct {
	header
	basePrice decimal.Decimal
	deadline  generic.Day
	paidPrice decimal.Decimal // set with paidOn
}

func (*CreditSale) Kind() TransactionKind { return KindCreditSale }

// BasePrice is the cost withdrawn from stock at registration.
func (s *CreditSale) BasePrice() decimal.Decimal { return s.basePrice }

func (s *CreditSale) Deadline() generic.Day { return s.deadline }

// PaidPrice is the settled price; false while unpaid.
func (s *CreditSale) PaidPrice() (decimal.Decimal, bool) {
	if !s.IsPaid() {
		return decimal.Zero, false
	}
	return s.paidPrice, true
}

// =============================================================================
// BREAKDOWN SALE
// =============================================================================

// BreakdownLine is one component deposited by a breakdown sale.
type BreakdownLine struct {
	Product   generic.ProductKey
	Quantity  int             // multiplier × amount
	UnitPrice decimal.Decimal // insertion price
}

// Value is quantity × insertion price.
func (l BreakdownLine) Value() decimal.Decimal { return generic.Total(l.UnitPrice, l.Quantity) }

type BreakdownSale struct {
	header
	basePrice decimal.Decimal
	effective decimal.Decimal
	lines     []BreakdownLine
}

func (*BreakdownSale) Kind() TransactionKind { return KindBreakdownSale }

// BasePrice may be negative when the components are worth more than the aggregate.
func (b *BreakdownSale) BasePrice() decimal.Decimal { return b.basePrice }

// Price is the base price clamped at zero.
func (b *BreakdownSale) Price() decimal.Decimal { return b.effective }

func (b *BreakdownSale) Lines() []BreakdownLine {
	return append([]BreakdownLine(nil), b.lines...)
}

var (
	_ Transaction = (*Acquisition)(nil)
	_ Transaction = (*CreditSale)(nil)
	_ Transaction = (*BreakdownSale)(nil)
)
