/*
graph.go - Recursive stock operations over the product graph

PURPOSE:
  Aggregate products are built from components, which may themselves be
  aggregates. Components are referenced by key and resolved through the
  warehouse registry on every access.

OPERATIONS:
  checkAggregation(p, amount):
    Validate, without mutating, that amount units of p can be supplied.
    An aggregate short of stock asks each component for
    (amount - own stock) × multiplier units. The first shortage found, in
    recipe order and depth first, is returned unchanged.

  aggregate(p, target, partner):
    Materialize one unit of p if its own stock is below target. Simple
    products cannot be materialized, so for them this is a no-op once
    validation passed. An aggregate unit consumes multiplier units of
    every component and is stocked at cost × (1 + aggravation).

  disaggregate(p, amount, partner):
    Deposit multiplier × amount units of every component, credited to
    partner at the component's insertion price, then withdraw amount
    units of p.

EXAMPLE:
  KIT = 2×BOLT + 1×NUT, stock KIT=1, BOLT=4, NUT=1
  checkAggregation(KIT, 3) -> BOLT needs (3-1)*2 = 4 ok, NUT needs 2 -> short NUT 2/1
*/
package warehouse

import (
	"github.com/shopspring/decimal"
	"github.com/warp/wholesale-engine/generic"
)

var one = decimal.NewFromInt(1)

// component resolves a recipe entry through the registry.
func (w *Warehouse) component(c Component) (*Product, error) {
	p, ok := w.products[c.Product.Normalize()]
	if !ok {
		return nil, &generic.UnknownProductError{Key: c.Product}
	}
	return p, nil
}

func (w *Warehouse) checkAggregation(p *Product, amount int) error {
	switch p.kind {
	case KindAggregate:
		missing := amount - p.Stock()
		if missing <= 0 {
			return nil
		}
		for _, c := range p.recipe.Components {
			cp, err := w.component(c)
			if err != nil {
				return err
			}
			if err := w.checkAggregation(cp, missing*c.Quantity); err != nil {
				return err
			}
		}
		return nil
	default:
		if available := p.Stock(); amount > available {
			return &generic.InsufficientStockError{ProductKey: p.key, Requested: amount, Available: available}
		}
		return nil
	}
}

func (w *Warehouse) aggregate(p *Product, target int, partner generic.PartnerKey) error {
	if p.Stock() >= target {
		return nil
	}

	switch p.kind {
	case KindAggregate:
		cost := decimal.Zero
		for _, c := range p.recipe.Components {
			cp, err := w.component(c)
			if err != nil {
				return err
			}
			for i := 0; i < c.Quantity; i++ {
				if err := w.aggregate(cp, c.Quantity, partner); err != nil {
					return err
				}
			}
			spent, err := cp.withdraw(c.Quantity)
			if err != nil {
				return err
			}
			cost = cost.Add(spent)
		}
		p.deposit(1, partner, cost.Mul(one.Add(p.recipe.Aggravation)))
		return nil
	default:
		return &generic.InsufficientStockError{ProductKey: p.key, Requested: target, Available: p.Stock()}
	}
}

// disaggregate returns the insertion unit price used for each component,
// in recipe order.
func (w *Warehouse) disaggregate(p *Product, amount int, partner generic.PartnerKey) ([]decimal.Decimal, error) {
	prices := make([]decimal.Decimal, 0, len(p.recipe.Components))
	for _, c := range p.recipe.Components {
		cp, err := w.component(c)
		if err != nil {
			return nil, err
		}
		price := cp.insertionPrice()
		cp.deposit(c.Quantity*amount, partner, price)
		prices = append(prices, price)
	}
	if _, err := p.withdraw(amount); err != nil {
		return nil, err
	}
	return prices, nil
}
