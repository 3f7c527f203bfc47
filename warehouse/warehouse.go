/*
Package warehouse is the orchestrator of the wholesale engine.

PURPOSE:
  A Warehouse owns every product, partner and transaction by key, the
  simulated clock and the cash balance. Callers only go through its
  operations; the entities it hands out are read-only views.

KEY CONCEPTS:
  - Registry: products and partners keyed case-insensitively; entities
    refer to each other by key and are resolved here on access
  - Transactions: a slice indexed by TransactionID, ids assigned from 0
  - Available balance: cash. Moves on acquisitions (-), breakdown sales (+)
    and credit-sale payments (+)
  - Accounting balance: available + current price of every unpaid credit
    sale. Computed on read, so it follows the clock

ATOMICITY:
  Every mutating operation validates before it mutates. Operations that
  can still fail half-way (credit sales materializing aggregates) run
  under Atomically(), which restores the state exported at the start.

CONCURRENCY:
  None. A Warehouse is not safe for concurrent use; the HTTP layer
  serializes calls.

SEE ALSO:
  - graph.go: Aggregation and disaggregation
  - transaction.go: Transaction variants
  - state.go: Export / FromState
  - render.go: Canonical record rendering
*/
package warehouse

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/loyalty"
)

// Recorder observes warehouse activity. metrics.Warehouse implements it.
type Recorder interface {
	TransactionRegistered(kind string)
	PaymentReceived(onTime bool)
	NotificationSent(kind string)
	OperationFailed(op string)
	BalancesChanged(available, accounting float64)
}

type nopRecorder struct{}

func (nopRecorder) TransactionRegistered(string)     {}
func (nopRecorder) PaymentReceived(bool)             {}
func (nopRecorder) NotificationSent(string)          {}
func (nopRecorder) OperationFailed(string)           {}
func (nopRecorder) BalancesChanged(float64, float64) {}

// Option configures a Warehouse.
type Option func(*Warehouse)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(w *Warehouse) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDeliveryMethod replaces the in-app mailbox.
func WithDeliveryMethod(d DeliveryMethod) Option {
	return func(w *Warehouse) {
		if d != nil {
			w.delivery = d
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(w *Warehouse) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithStartDay sets the initial clock value. Default: day 0.
func WithStartDay(day generic.Day) Option {
	return func(w *Warehouse) {
		w.clock = generic.NewClock(day)
	}
}

type Warehouse struct {
	clock        *generic.Clock
	available    decimal.Decimal
	products     map[string]*Product
	partners     map[string]*Partner
	transactions []Transaction

	delivery DeliveryMethod
	recorder Recorder
	logger   *zap.Logger
}

func New(options ...Option) *Warehouse {
	w := &Warehouse{
		clock:    generic.NewClock(0),
		products: make(map[string]*Product),
		partners: make(map[string]*Partner),
		delivery: Mailbox,
		recorder: nopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// =============================================================================
// CLOCK & BALANCES
// =============================================================================

func (w *Warehouse) Now() generic.Day { return w.clock.Now() }

// AdvanceDate moves the clock forward by days, which must be positive.
func (w *Warehouse) AdvanceDate(days int) error {
	if err := w.clock.Advance(days); err != nil {
		w.recorder.OperationFailed("advance_date")
		return err
	}
	w.logger.Debug("clock advanced", zap.Int("days", days), zap.Stringer("today", w.clock.Now()))
	w.balancesChanged()
	return nil
}

func (w *Warehouse) AvailableBalance() decimal.Decimal { return w.available }

// AccountingBalance is the available balance plus what unpaid credit sales
// are worth today.
func (w *Warehouse) AccountingBalance() decimal.Decimal {
	total := w.available
	for _, tx := range w.transactions {
		if sale, ok := tx.(*CreditSale); ok && !sale.IsPaid() {
			total = total.Add(w.Price(sale))
		}
	}
	return total
}

func (w *Warehouse) balancesChanged() {
	w.recorder.BalancesChanged(w.available.InexactFloat64(), w.AccountingBalance().InexactFloat64())
}

// =============================================================================
// REGISTRATION
// =============================================================================

func (w *Warehouse) RegisterPartner(key generic.PartnerKey, name, address string) error {
	if _, ok := w.partners[key.Normalize()]; ok {
		w.recorder.OperationFailed("register_partner")
		return &generic.DuplicatePartnerError{Key: key}
	}
	w.partners[key.Normalize()] = newPartner(key, name, address)
	w.logger.Debug("partner registered", zap.String("partner", string(key)))
	return nil
}

func (w *Warehouse) RegisterSimpleProduct(key generic.ProductKey) error {
	if _, ok := w.products[key.Normalize()]; ok {
		w.recorder.OperationFailed("register_product")
		return &generic.DuplicateProductError{Key: key}
	}
	w.products[key.Normalize()] = newSimpleProduct(key)
	w.logger.Debug("product registered", zap.String("product", string(key)), zap.Stringer("kind", KindSimple))
	return nil
}

// RegisterAggregateProduct registers a product built from already
// registered components.
func (w *Warehouse) RegisterAggregateProduct(key generic.ProductKey, recipe Recipe) error {
	if _, ok := w.products[key.Normalize()]; ok {
		w.recorder.OperationFailed("register_product")
		return &generic.DuplicateProductError{Key: key}
	}
	if err := w.validateRecipe(recipe); err != nil {
		w.recorder.OperationFailed("register_product")
		return err
	}
	w.products[key.Normalize()] = newAggregateProduct(key, recipe.clone())
	w.logger.Debug("product registered",
		zap.String("product", string(key)),
		zap.Stringer("kind", KindAggregate),
		zap.Stringer("recipe", recipe))
	return nil
}

func (w *Warehouse) validateRecipe(r Recipe) error {
	if len(r.Components) == 0 {
		return fmt.Errorf("%w: no components", generic.ErrInvalidRecipe)
	}
	if r.Aggravation.IsNegative() {
		return fmt.Errorf("%w: negative aggravation %s", generic.ErrInvalidRecipe, r.Aggravation)
	}
	for _, c := range r.Components {
		if c.Quantity <= 0 {
			return fmt.Errorf("%w: component %s has quantity %d", generic.ErrInvalidRecipe, c.Product, c.Quantity)
		}
		if _, err := w.component(c); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (w *Warehouse) Product(key generic.ProductKey) (*Product, error) {
	p, ok := w.products[key.Normalize()]
	if !ok {
		return nil, &generic.UnknownProductError{Key: key}
	}
	return p, nil
}

// Products returns every product ordered by key.
func (w *Warehouse) Products() []*Product {
	out := make([]*Product, 0, len(w.products))
	for _, p := range w.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Product) int { return generic.CompareKeys(string(a.key), string(b.key)) })
	return out
}

func (w *Warehouse) Partner(key generic.PartnerKey) (*Partner, error) {
	p, ok := w.partners[key.Normalize()]
	if !ok {
		return nil, &generic.UnknownPartnerError{Key: key}
	}
	return p, nil
}

// Partners returns every partner ordered by key.
func (w *Warehouse) Partners() []*Partner {
	out := make([]*Partner, 0, len(w.partners))
	for _, p := range w.partners {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Partner) int { return generic.CompareKeys(string(a.key), string(b.key)) })
	return out
}

// Batches returns every batch in the warehouse in batch order.
func (w *Warehouse) Batches() []generic.Batch {
	var out []generic.Batch
	for _, p := range w.products {
		out = append(out, p.Batches()...)
	}
	generic.SortBatches(out)
	return out
}

func (w *Warehouse) BatchesByProduct(key generic.ProductKey) ([]generic.Batch, error) {
	p, err := w.Product(key)
	if err != nil {
		return nil, err
	}
	return p.Batches(), nil
}

// BatchesByPartner returns the batches supplied by a partner.
func (w *Warehouse) BatchesByPartner(key generic.PartnerKey) ([]generic.Batch, error) {
	if _, err := w.Partner(key); err != nil {
		return nil, err
	}
	var out []generic.Batch
	for _, p := range w.products {
		out = append(out, p.ledger.BatchesFrom(key)...)
	}
	generic.SortBatches(out)
	return out, nil
}

// BatchesUnder returns every batch with a unit price strictly below price.
func (w *Warehouse) BatchesUnder(price decimal.Decimal) []generic.Batch {
	var out []generic.Batch
	for _, p := range w.products {
		out = append(out, p.ledger.BatchesUnder(price)...)
	}
	generic.SortBatches(out)
	return out
}

func (w *Warehouse) Transaction(id generic.TransactionID) (Transaction, error) {
	if id < 0 || int(id) >= len(w.transactions) {
		return nil, &generic.UnknownTransactionError{ID: id}
	}
	return w.transactions[id], nil
}

// Transactions returns every transaction in id order.
func (w *Warehouse) Transactions() []Transaction {
	return append([]Transaction(nil), w.transactions...)
}

func (w *Warehouse) nextID() generic.TransactionID {
	return generic.TransactionID(len(w.transactions))
}

// =============================================================================
// PRICES
// =============================================================================

// Price is the current price of a transaction. For an unpaid credit sale
// it is recomputed from the partner's status and today's date.
func (w *Warehouse) Price(tx Transaction) decimal.Decimal {
	switch t := tx.(type) {
	case *Acquisition:
		return t.Price()
	case *BreakdownSale:
		return t.Price()
	case *CreditSale:
		if paid, ok := t.PaidPrice(); ok {
			return paid
		}
		return w.creditPrice(t)
	}
	return decimal.Zero
}

func (w *Warehouse) creditPrice(s *CreditSale) decimal.Decimal {
	partner := w.partners[s.partner.Normalize()]
	product := w.products[s.product.Normalize()]
	return loyalty.Price(partner.status, s.basePrice, w.Now(), s.deadline, product.TimeFactor())
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func validAmount(quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity %d", generic.ErrInvalidAmount, quantity)
	}
	return nil
}

// RegisterAcquisition buys quantity units of product from partner at a unit
// price. Subscribers are notified before the stock is deposited.
func (w *Warehouse) RegisterAcquisition(partnerKey generic.PartnerKey, productKey generic.ProductKey,
	unitPrice decimal.Decimal, quantity int) (*Acquisition, error) {
	partner, err := w.Partner(partnerKey)
	if err != nil {
		w.recorder.OperationFailed("acquisition")
		return nil, err
	}
	product, err := w.Product(productKey)
	if err != nil {
		w.recorder.OperationFailed("acquisition")
		return nil, err
	}
	if err := validAmount(quantity); err != nil {
		w.recorder.OperationFailed("acquisition")
		return nil, err
	}
	if unitPrice.IsNegative() {
		w.recorder.OperationFailed("acquisition")
		return nil, fmt.Errorf("%w: price %s", generic.ErrInvalidAmount, unitPrice)
	}

	if n, ok := notificationFor(product, unitPrice); ok {
		w.notify(n)
	}
	product.deposit(quantity, partner.key, unitPrice)

	now := w.Now()
	tx := &Acquisition{
		header:    header{id: w.nextID(), partner: partner.key, product: product.key, quantity: quantity},
		unitPrice: unitPrice,
	}
	tx.pay(now)
	w.transactions = append(w.transactions, tx)
	partner.acquisitions = append(partner.acquisitions, tx.id)
	w.available = w.available.Sub(tx.Price())

	w.logger.Debug("acquisition registered",
		zap.Int("id", int(tx.id)),
		zap.String("partner", string(partner.key)),
		zap.String("product", string(product.key)),
		zap.Int("quantity", quantity),
		zap.Stringer("price", tx.Price()))
	w.recorder.TransactionRegistered(string(KindAcquisition))
	w.balancesChanged()
	return tx, nil
}

func (w *Warehouse) notify(n Notification) {
	for _, p := range w.Partners() {
		if !p.IsSubscribed(n.Product) {
			continue
		}
		w.delivery.Deliver(p, n)
		w.recorder.NotificationSent(string(n.Kind))
		w.logger.Debug("notification sent",
			zap.String("partner", string(p.key)),
			zap.String("kind", string(n.Kind)),
			zap.String("product", string(n.Product)))
	}
}

// RegisterCreditSale sells quantity units to partner, payable by deadline.
// Aggregate products short of stock are materialized from their components
// first; any shortage at any depth fails the sale with nothing changed.
func (w *Warehouse) RegisterCreditSale(partnerKey generic.PartnerKey, productKey generic.ProductKey,
	deadline generic.Day, quantity int) (*CreditSale, error) {
	var sale *CreditSale
	err := w.Atomically(func() error {
		partner, err := w.Partner(partnerKey)
		if err != nil {
			return err
		}
		product, err := w.Product(productKey)
		if err != nil {
			return err
		}
		if err := validAmount(quantity); err != nil {
			return err
		}
		if err := w.checkAggregation(product, quantity); err != nil {
			return err
		}
		for i := 0; i < quantity; i++ {
			if err := w.aggregate(product, quantity, partner.key); err != nil {
				return err
			}
		}
		base, err := product.withdraw(quantity)
		if err != nil {
			return err
		}

		sale = &CreditSale{
			header:    header{id: w.nextID(), partner: partner.key, product: product.key, quantity: quantity},
			basePrice: base,
			deadline:  deadline,
		}
		w.transactions = append(w.transactions, sale)
		partner.sales = append(partner.sales, sale.id)
		return nil
	})
	if err != nil {
		w.recorder.OperationFailed("credit_sale")
		w.logger.Debug("credit sale rejected", zap.Error(err))
		return nil, err
	}

	w.logger.Debug("credit sale registered",
		zap.Int("id", int(sale.id)),
		zap.String("partner", string(sale.partner)),
		zap.String("product", string(sale.product)),
		zap.Int("quantity", quantity),
		zap.Stringer("base", sale.basePrice),
		zap.Stringer("deadline", deadline))
	w.recorder.TransactionRegistered(string(KindCreditSale))
	w.balancesChanged()
	return sale, nil
}

// RegisterBreakdownSale decomposes quantity units of an aggregate product
// back into its components, credited to partner. For a simple product it
// does nothing and returns (nil, nil).
func (w *Warehouse) RegisterBreakdownSale(partnerKey generic.PartnerKey, productKey generic.ProductKey,
	quantity int) (*BreakdownSale, error) {
	var sale *BreakdownSale
	err := w.Atomically(func() error {
		partner, err := w.Partner(partnerKey)
		if err != nil {
			return err
		}
		product, err := w.Product(productKey)
		if err != nil {
			return err
		}
		if err := validAmount(quantity); err != nil {
			return err
		}
		if !product.CanDisaggregate() {
			return nil
		}
		if available := product.Stock(); quantity > available {
			return &generic.InsufficientStockError{ProductKey: product.key, Requested: quantity, Available: available}
		}

		value := generic.Total(product.LowestPrice(), quantity)
		prices, err := w.disaggregate(product, quantity, partner.key)
		if err != nil {
			return err
		}
		lines := make([]BreakdownLine, len(prices))
		for i, c := range product.recipe.Components {
			lines[i] = BreakdownLine{Product: c.Product, Quantity: c.Quantity * quantity, UnitPrice: prices[i]}
			value = value.Sub(lines[i].Value())
		}

		sale = &BreakdownSale{
			header:    header{id: w.nextID(), partner: partner.key, product: product.key, quantity: quantity},
			basePrice: value,
			effective: generic.MaxDecimal(value, decimal.Zero),
			lines:     lines,
		}
		sale.pay(w.Now())
		w.transactions = append(w.transactions, sale)
		partner.sales = append(partner.sales, sale.id)
		partner.status = partner.status.Reward(sale.effective)
		w.available = w.available.Add(sale.effective)
		return nil
	})
	if err != nil {
		w.recorder.OperationFailed("breakdown_sale")
		return nil, err
	}
	if sale == nil {
		w.logger.Debug("breakdown ignored for simple product", zap.String("product", string(productKey)))
		return nil, nil
	}

	w.logger.Debug("breakdown sale registered",
		zap.Int("id", int(sale.id)),
		zap.String("partner", string(sale.partner)),
		zap.String("product", string(sale.product)),
		zap.Int("quantity", quantity),
		zap.Stringer("base", sale.basePrice),
		zap.Stringer("price", sale.effective))
	w.recorder.TransactionRegistered(string(KindBreakdownSale))
	w.balancesChanged()
	return sale, nil
}

// ReceivePayment settles a credit sale at today's price and updates the
// partner's status. Paying an already settled transaction, or one that is
// settled at creation, does nothing.
func (w *Warehouse) ReceivePayment(id generic.TransactionID) error {
	tx, err := w.Transaction(id)
	if err != nil {
		w.recorder.OperationFailed("payment")
		return err
	}
	sale, ok := tx.(*CreditSale)
	if !ok || sale.IsPaid() {
		return nil
	}

	partner := w.partners[sale.partner.Normalize()]
	price := w.creditPrice(sale)
	delay := loyalty.Delay(w.Now(), sale.deadline)
	before := partner.status

	sale.paidPrice = price
	sale.pay(w.Now())
	partner.status = partner.status.Settle(price, delay)
	w.available = w.available.Add(price)

	w.logger.Debug("payment received",
		zap.Int("id", int(id)),
		zap.String("partner", string(partner.key)),
		zap.Stringer("price", price),
		zap.Int("delay", delay),
		zap.Stringer("tier_before", before.Tier),
		zap.Stringer("tier_after", partner.status.Tier),
		zap.Int64("points", partner.status.Points))
	w.recorder.PaymentReceived(delay <= 0)
	w.balancesChanged()
	return nil
}

// ImportBatch deposits stock without creating a transaction or moving the
// balance. Used by the bulk importer.
func (w *Warehouse) ImportBatch(productKey generic.ProductKey, partnerKey generic.PartnerKey,
	unitPrice decimal.Decimal, quantity int) error {
	partner, err := w.Partner(partnerKey)
	if err != nil {
		return err
	}
	product, err := w.Product(productKey)
	if err != nil {
		return err
	}
	if err := validAmount(quantity); err != nil {
		return err
	}
	if unitPrice.IsNegative() {
		return fmt.Errorf("%w: price %s", generic.ErrInvalidAmount, unitPrice)
	}
	product.deposit(quantity, partner.key, unitPrice)
	return nil
}

// =============================================================================
// PARTNER HISTORY
// =============================================================================

func (w *Warehouse) PartnerAcquisitions(key generic.PartnerKey) ([]*Acquisition, error) {
	p, err := w.Partner(key)
	if err != nil {
		return nil, err
	}
	out := make([]*Acquisition, 0, len(p.acquisitions))
	for _, id := range p.acquisitions {
		out = append(out, w.transactions[id].(*Acquisition))
	}
	return out, nil
}

// PartnerSales returns credit and breakdown sales to the partner in id order.
func (w *Warehouse) PartnerSales(key generic.PartnerKey) ([]Transaction, error) {
	p, err := w.Partner(key)
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(p.sales))
	for _, id := range p.sales {
		out = append(out, w.transactions[id])
	}
	return out, nil
}

// PartnerPaidSales returns the settled sales to the partner in id order.
func (w *Warehouse) PartnerPaidSales(key generic.PartnerKey) ([]Transaction, error) {
	sales, err := w.PartnerSales(key)
	if err != nil {
		return nil, err
	}
	out := sales[:0]
	for _, tx := range sales {
		if tx.IsPaid() {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (w *Warehouse) PartnerValues(key generic.PartnerKey) (PartnerValues, error) {
	p, err := w.Partner(key)
	if err != nil {
		return PartnerValues{}, err
	}
	v := PartnerValues{Acquisitions: decimal.Zero, Sales: decimal.Zero, PaidSales: decimal.Zero}
	for _, id := range p.acquisitions {
		v.Acquisitions = v.Acquisitions.Add(w.transactions[id].(*Acquisition).Price())
	}
	for _, id := range p.sales {
		sale, ok := w.transactions[id].(*CreditSale)
		if !ok {
			continue
		}
		v.Sales = v.Sales.Add(sale.basePrice)
		if paid, ok := sale.PaidPrice(); ok {
			v.PaidSales = v.PaidSales.Add(paid)
		}
	}
	return v, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// ToggleNotifications flips a partner's subscription to a product and
// returns the new state.
func (w *Warehouse) ToggleNotifications(partnerKey generic.PartnerKey, productKey generic.ProductKey) (bool, error) {
	partner, err := w.Partner(partnerKey)
	if err != nil {
		return false, err
	}
	product, err := w.Product(productKey)
	if err != nil {
		return false, err
	}
	on := partner.toggle(product.key)
	w.logger.Debug("subscription toggled",
		zap.String("partner", string(partner.key)),
		zap.String("product", string(product.key)),
		zap.Bool("subscribed", on))
	return on, nil
}

// Notifications drains the partner's pending notifications.
func (w *Warehouse) Notifications(key generic.PartnerKey) ([]Notification, error) {
	p, err := w.Partner(key)
	if err != nil {
		return nil, err
	}
	return p.drain(), nil
}
