/*
state.go - Whole-state export and reconstruction

PURPOSE:
  State is a plain, deterministic copy of everything a Warehouse holds:
  clock, available balance, products with their batches, partners with
  status, subscriptions and pending notifications, and every transaction.
  Partner histories are not stored; they are rebuilt from the transactions.

DETERMINISM:
  Products and partners are sorted by key, batches by batch order,
  subscriptions by key, transactions by id. Two warehouses with the same
  contents export equal States, and equal encodings.

USES:
  - Persistence: EncodeState / DecodeState produce the snapshot payload
  - Atomicity: Atomically() exports before a risky operation and restores
    on failure

SEE ALSO:
  - generic/store.go: SnapshotStore port
  - store/sqlite/sqlite.go: SQLite snapshots
*/
package warehouse

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/loyalty"
)

// =============================================================================
// STATE TYPES
// =============================================================================

type State struct {
	Day              int                `json:"day"`
	AvailableBalance decimal.Decimal    `json:"available_balance"`
	NextID           int                `json:"next_id"`
	Products         []ProductState     `json:"products"`
	Partners         []PartnerState     `json:"partners"`
	Transactions     []TransactionState `json:"transactions"`
}

type ComponentState struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type BatchState struct {
	Partner  string          `json:"partner"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type ProductState struct {
	Key         string           `json:"key"`
	Kind        string           `json:"kind"`
	MaxPrice    decimal.Decimal  `json:"max_price"`
	IsNew       bool             `json:"is_new"`
	Aggravation decimal.Decimal  `json:"aggravation"`
	Components  []ComponentState `json:"components,omitempty"`
	Batches     []BatchState     `json:"batches"`
}

type NotificationState struct {
	Kind    string          `json:"kind"`
	Product string          `json:"product"`
	Price   decimal.Decimal `json:"price"`
}

type PartnerState struct {
	Key           string              `json:"key"`
	Name          string              `json:"name"`
	Address       string              `json:"address"`
	Tier          string              `json:"tier"`
	Points        int64               `json:"points"`
	Subscriptions []string            `json:"subscriptions"`
	Notifications []NotificationState `json:"notifications"`
}

type LineState struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type TransactionState struct {
	ID       int    `json:"id"`
	Kind     string `json:"kind"`
	Partner  string `json:"partner"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	PaidOn   *int   `json:"paid_on,omitempty"`

	UnitPrice decimal.Decimal `json:"unit_price"` // acquisition
	BasePrice decimal.Decimal `json:"base_price"` // credit and breakdown sales
	Effective decimal.Decimal `json:"effective"`  // breakdown sale
	PaidPrice decimal.Decimal `json:"paid_price"` // paid credit sale
	Deadline  int             `json:"deadline"`   // credit sale
	Lines     []LineState     `json:"lines,omitempty"`
}

// =============================================================================
// EXPORT
// =============================================================================

// Export copies the warehouse into a State.
func (w *Warehouse) Export() State {
	s := State{
		Day:              int(w.Now()),
		AvailableBalance: w.available,
		NextID:           int(w.nextID()),
		Products:         []ProductState{},
		Partners:         []PartnerState{},
		Transactions:     []TransactionState{},
	}

	for _, p := range w.Products() {
		ps := ProductState{
			Key:         string(p.key),
			Kind:        p.kind.String(),
			MaxPrice:    p.maxPrice,
			IsNew:       p.isNew,
			Aggravation: p.recipe.Aggravation,
			Batches:     []BatchState{},
		}
		for _, c := range p.recipe.Components {
			ps.Components = append(ps.Components, ComponentState{Product: string(c.Product), Quantity: c.Quantity})
		}
		for _, b := range p.Batches() {
			ps.Batches = append(ps.Batches, BatchState{Partner: string(b.PartnerKey), Price: b.Price, Quantity: b.Quantity})
		}
		s.Products = append(s.Products, ps)
	}

	for _, p := range w.Partners() {
		ps := PartnerState{
			Key:           string(p.key),
			Name:          p.name,
			Address:       p.address,
			Tier:          p.status.Tier.String(),
			Points:        p.status.Points,
			Subscriptions: []string{},
			Notifications: []NotificationState{},
		}
		for k := range p.subscriptions {
			ps.Subscriptions = append(ps.Subscriptions, string(w.products[k].key))
		}
		slices.SortFunc(ps.Subscriptions, generic.CompareKeys)
		for _, n := range p.notifications {
			ps.Notifications = append(ps.Notifications, NotificationState{Kind: string(n.Kind), Product: string(n.Product), Price: n.Price})
		}
		s.Partners = append(s.Partners, ps)
	}

	for _, tx := range w.transactions {
		s.Transactions = append(s.Transactions, exportTransaction(tx))
	}
	return s
}

func exportTransaction(tx Transaction) TransactionState {
	ts := TransactionState{
		ID:       int(tx.ID()),
		Kind:     string(tx.Kind()),
		Partner:  string(tx.Partner()),
		Product:  string(tx.Product()),
		Quantity: tx.Quantity(),
	}
	if day, ok := tx.PaymentDate(); ok {
		d := int(day)
		ts.PaidOn = &d
	}
	switch t := tx.(type) {
	case *Acquisition:
		ts.UnitPrice = t.unitPrice
	case *CreditSale:
		ts.BasePrice = t.basePrice
		ts.Deadline = int(t.deadline)
		ts.PaidPrice = t.paidPrice
	case *BreakdownSale:
		ts.BasePrice = t.basePrice
		ts.Effective = t.effective
		for _, l := range t.lines {
			ts.Lines = append(ts.Lines, LineState{Product: string(l.Product), Quantity: l.Quantity, UnitPrice: l.UnitPrice})
		}
	}
	return ts
}

// =============================================================================
// RECONSTRUCTION
// =============================================================================

// FromState rebuilds a warehouse from an exported State. Options apply as
// in New.
func FromState(s State, options ...Option) (*Warehouse, error) {
	w := New(options...)
	if err := w.load(s); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Warehouse) load(s State) error {
	w.clock = generic.NewClock(generic.Day(s.Day))
	w.available = s.AvailableBalance
	w.products = make(map[string]*Product, len(s.Products))
	w.partners = make(map[string]*Partner, len(s.Partners))
	w.transactions = make([]Transaction, 0, len(s.Transactions))

	for _, ps := range s.Products {
		key := generic.ProductKey(ps.Key)
		if _, dup := w.products[key.Normalize()]; dup {
			return &generic.DuplicateProductError{Key: key}
		}
		var p *Product
		switch ps.Kind {
		case KindSimple.String():
			p = newSimpleProduct(key)
		case KindAggregate.String():
			r := Recipe{Aggravation: ps.Aggravation}
			for _, c := range ps.Components {
				r.Components = append(r.Components, Component{Product: generic.ProductKey(c.Product), Quantity: c.Quantity})
			}
			p = newAggregateProduct(key, r)
		default:
			return fmt.Errorf("product %s: unknown kind %q", ps.Key, ps.Kind)
		}
		p.maxPrice = ps.MaxPrice
		p.isNew = ps.IsNew
		for _, b := range ps.Batches {
			p.ledger.Deposit(b.Quantity, generic.PartnerKey(b.Partner), b.Price)
		}
		w.products[key.Normalize()] = p
	}
	// Recipes may name products listed after them.
	for _, p := range w.products {
		if p.kind != KindAggregate {
			continue
		}
		if err := w.validateRecipe(p.recipe); err != nil {
			return fmt.Errorf("product %s: %w", p.key, err)
		}
	}

	for _, ps := range s.Partners {
		key := generic.PartnerKey(ps.Key)
		if _, dup := w.partners[key.Normalize()]; dup {
			return &generic.DuplicatePartnerError{Key: key}
		}
		tier, err := loyalty.ParseTier(ps.Tier)
		if err != nil {
			return fmt.Errorf("partner %s: %w", ps.Key, err)
		}
		p := newPartner(key, ps.Name, ps.Address)
		p.status = loyalty.Status{Partner: key, Tier: tier, Points: ps.Points}
		for _, sub := range ps.Subscriptions {
			product, err := w.Product(generic.ProductKey(sub))
			if err != nil {
				return fmt.Errorf("partner %s: %w", ps.Key, err)
			}
			p.subscriptions[product.key.Normalize()] = struct{}{}
		}
		for _, n := range ps.Notifications {
			p.notifications = append(p.notifications, Notification{
				Kind:    NotificationKind(n.Kind),
				Product: generic.ProductKey(n.Product),
				Price:   n.Price,
			})
		}
		w.partners[key.Normalize()] = p
	}

	for i, ts := range s.Transactions {
		if ts.ID != i {
			return fmt.Errorf("transaction at position %d has id %d", i, ts.ID)
		}
		tx, err := w.loadTransaction(ts)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", ts.ID, err)
		}
		w.transactions = append(w.transactions, tx)
	}
	if s.NextID != len(w.transactions) {
		return fmt.Errorf("next id %d does not follow %d transactions", s.NextID, len(w.transactions))
	}
	return nil
}

func (w *Warehouse) loadTransaction(ts TransactionState) (Transaction, error) {
	partner, err := w.Partner(generic.PartnerKey(ts.Partner))
	if err != nil {
		return nil, err
	}
	product, err := w.Product(generic.ProductKey(ts.Product))
	if err != nil {
		return nil, err
	}
	h := header{id: generic.TransactionID(ts.ID), partner: partner.key, product: product.key, quantity: ts.Quantity}
	if ts.PaidOn != nil {
		h.pay(generic.Day(*ts.PaidOn))
	}

	switch TransactionKind(ts.Kind) {
	case KindAcquisition:
		partner.acquisitions = append(partner.acquisitions, h.id)
		return &Acquisition{header: h, unitPrice: ts.UnitPrice}, nil
	case KindCreditSale:
		partner.sales = append(partner.sales, h.id)
		return &CreditSale{header: h, basePrice: ts.BasePrice, deadline: generic.Day(ts.Deadline), paidPrice: ts.PaidPrice}, nil
	case KindBreakdownSale:
		partner.sales = append(partner.sales, h.id)
		b := &BreakdownSale{header: h, basePrice: ts.BasePrice, effective: ts.Effective}
		for _, l := range ts.Lines {
			b.lines = append(b.lines, BreakdownLine{Product: generic.ProductKey(l.Product), Quantity: l.Quantity, UnitPrice: l.UnitPrice})
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown kind %q", ts.Kind)
}

// Restore replaces the contents of w with s, keeping w's options. On error
// w is left unchanged.
func (w *Warehouse) Restore(s State) error {
	fresh := &Warehouse{}
	if err := fresh.load(s); err != nil {
		return err
	}
	w.clock, w.available = fresh.clock, fresh.available
	w.products, w.partners, w.transactions = fresh.products, fresh.partners, fresh.transactions
	w.balancesChanged()
	return nil
}

// Atomically runs fn and, if it fails, puts the warehouse back the way it
// was before the call.
func (w *Warehouse) Atomically(fn func() error) error {
	saved := w.Export()
	err := fn()
	if err == nil {
		return nil
	}
	if rerr := w.load(saved); rerr != nil {
		return fmt.Errorf("%w (restore failed: %v)", err, rerr)
	}
	return err
}

// =============================================================================
// ENCODING
// =============================================================================

func EncodeState(s State) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}
