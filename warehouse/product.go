package warehouse

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/wholesale-engine/generic"
)

// =============================================================================
// PRODUCT KINDS - Closed set
// =============================================================================

type ProductKind int

const (
	KindSimple ProductKind = iota
	KindAggregate
)

func (k ProductKind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindAggregate:
		return "aggregate"
	}
	return fmt.Sprintf("ProductKind(%d)", int(k))
}

// Time factors: the half-width, in days, of the on-time pricing window.
const (
	SimpleTimeFactor    = 5
	AggregateTimeFactor = 3
)

// =============================================================================
// RECIPE
// =============================================================================

// Component is one weighted entry of a recipe. Product is a registry key.
type Component struct {
	Product  generic.ProductKey
	Quantity int
}

// Recipe composes an aggregate product. Aggravation loads the price of
// units assembled from the components.
type Recipe struct {
	Aggravation decimal.Decimal
	Components  []Component
}

// String renders the components as key:quantity#key:quantity.
func (r Recipe) String() string {
	parts := make([]string, len(r.Components))
	for i, c := range r.Components {
		parts[i] = fmt.Sprintf("%s:%d", c.Product, c.Quantity)
	}
	return strings.Join(parts, "#")
}

func (r Recipe) clone() Recipe {
	return Recipe{
		Aggravation: r.Aggravation,
		Components:  append([]Component(nil), r.Components...),
	}
}

// =============================================================================
// PRODUCT
// =============================================================================

// Product is owned by the warehouse registry. Exported methods are read-only;
// stock moves only through warehouse operations.
type Product struct {
	key      generic.ProductKey
	kind     ProductKind
	recipe   Recipe // zero for simple products
	maxPrice decimal.Decimal
	isNew    bool
	ledger   *generic.StockLedger
}

func newSimpleProduct(key generic.ProductKey) *Product {
	return &Product{
		key:    key,
		kind:   KindSimple,
		isNew:  true,
		ledger: generic.NewStockLedger(key),
	}
}

func newAggregateProduct(key generic.ProductKey, recipe Recipe) *Product {
	p := newSimpleProduct(key)
	p.kind = KindAggregate
	p.recipe = recipe
	return p
}

func (p *Product) Key() generic.ProductKey { return p.key }
func (p *Product) Kind() ProductKind       { return p.kind }

// MaxPrice is the highest unit price this product was ever stocked at.
func (p *Product) MaxPrice() decimal.Decimal { return p.maxPrice }

// IsNew reports whether the product has never received stock.
func (p *Product) IsNew() bool { return p.isNew }

func (p *Product) Stock() int                   { return p.ledger.Stock() }
func (p *Product) HasStock() bool               { return p.ledger.HasStock() }
func (p *Product) LowestPrice() decimal.Decimal { return p.ledger.LowestPrice() }
func (p *Product) Batches() []generic.Batch     { return p.ledger.Batches() }

// Recipe returns a copy of the recipe and whether the product has one.
func (p *Product) Recipe() (Recipe, bool) {
	if p.kind != KindAggregate {
		return Recipe{}, false
	}
	return p.recipe.clone(), true
}

// TimeFactor is n in the credit-sale period table.
func (p *Product) TimeFactor() int {
	switch p.kind {
	case KindAggregate:
		return AggregateTimeFactor
	default:
		return SimpleTimeFactor
	}
}

// CanDisaggregate reports whether a breakdown sale applies to the product.
func (p *Product) CanDisaggregate() bool {
	return p.kind == KindAggregate
}

// insertionPrice is what a unit deposited by decomposition is worth: the
// cheapest stocked price, or the all-time maximum when out of stock.
func (p *Product) insertionPrice() decimal.Decimal {
	if p.HasStock() {
		return p.LowestPrice()
	}
	return p.maxPrice
}

func (p *Product) deposit(units int, partner generic.PartnerKey, price decimal.Decimal) {
	if units <= 0 {
		return
	}
	p.isNew = false
	if price.GreaterThan(p.maxPrice) {
		p.maxPrice = price
	}
	p.ledger.Deposit(units, partner, price)
}

func (p *Product) withdraw(units int) (decimal.Decimal, error) {
	return p.ledger.Withdraw(units)
}

// String renders key|max price|stock, plus |aggravation|recipe for aggregates.
func (p *Product) String() string {
	s := fmt.Sprintf("%s|%s|%d", p.key, generic.Rounded(p.maxPrice), p.Stock())
	if p.kind == KindAggregate {
		s += fmt.Sprintf("|%s|%s", p.recipe.Aggravation.String(), p.recipe)
	}
	return s
}
