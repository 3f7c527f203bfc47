/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the warehouse model from the external API contract. Every record DTO
  carries its canonical pipe-separated rendering in Record so the
  front-end can display it verbatim.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Clock and balances:
    DateDTO, AdvanceDateRequest, BalanceDTO

  Products:
    ProductDTO, ComponentDTO, CreateProductRequest, BatchDTO

  Partners:
    PartnerDTO, CreatePartnerRequest, NotificationDTO, SubscriptionDTO

  Transactions:
    TransactionDTO, BreakdownLineDTO, AcquisitionRequest,
    CreditSaleRequest, BreakdownRequest

  Snapshots and scenarios:
    SnapshotDTO, ScenarioDTO, LoadScenarioRequest

PRICES:
  Prices are decimal.Decimal and travel as JSON strings ("12.5"). Requests
  accept either strings or bare numbers.

VALIDATION:
  Validation is done by the warehouse, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - warehouse/render.go: Canonical record strings
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/wholesale-engine/generic"
	"github.com/warp/wholesale-engine/warehouse"
)

// =============================================================================
// CLOCK AND BALANCES
// =============================================================================

type DateDTO struct {
	Day int `json:"day"`
}

type AdvanceDateRequest struct {
	Days int `json:"days"`
}

type BalanceDTO struct {
	Available  decimal.Decimal `json:"available"`
	Accounting decimal.Decimal `json:"accounting"`
}

// =============================================================================
// PRODUCTS
// =============================================================================

type ComponentDTO struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// ProductDTO represents a product in API responses. Aggravation and
// Components are only set for aggregate products.
type ProductDTO struct {
	Key         string           `json:"key"`
	Kind        string           `json:"kind"`
	MaxPrice    decimal.Decimal  `json:"max_price"`
	Stock       int              `json:"stock"`
	Aggravation *decimal.Decimal `json:"aggravation,omitempty"`
	Components  []ComponentDTO   `json:"components,omitempty"`
	Record      string           `json:"record"`
}

// CreateProductRequest registers a simple product, or an aggregate one when
// Components is non-empty.
type CreateProductRequest struct {
	Key         string          `json:"key"`
	Aggravation decimal.Decimal `json:"aggravation"`
	Components  []ComponentDTO  `json:"components"`
}

type BatchDTO struct {
	Product  string          `json:"product"`
	Partner  string          `json:"partner"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Record   string          `json:"record"`
}

// =============================================================================
// PARTNERS
// =============================================================================

type PartnerDTO struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	Tier         string          `json:"tier"`
	Points       int64           `json:"points"`
	Acquisitions decimal.Decimal `json:"acquisitions"`
	Sales        decimal.Decimal `json:"sales"`
	PaidSales    decimal.Decimal `json:"paid_sales"`
	Record       string          `json:"record"`
}

type CreatePartnerRequest struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type NotificationDTO struct {
	Kind    string          `json:"kind"`
	Product string          `json:"product"`
	Price   decimal.Decimal `json:"price"`
	Record  string          `json:"record"`
}

type SubscriptionDTO struct {
	Partner    string `json:"partner"`
	Product    string `json:"product"`
	Subscribed bool   `json:"subscribed"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents any transaction. Price is the current price:
// for an unpaid credit sale it moves with the clock.
type TransactionDTO struct {
	ID          int                `json:"id"`
	Kind        string             `json:"kind"`
	Partner     string             `json:"partner"`
	Product     string             `json:"product"`
	Quantity    int                `json:"quantity"`
	Price       decimal.Decimal    `json:"price"`
	BasePrice   *decimal.Decimal   `json:"base_price,omitempty"`
	Deadline    *int               `json:"deadline,omitempty"`
	Paid        bool               `json:"paid"`
	PaymentDate *int               `json:"payment_date,omitempty"`
	Lines       []BreakdownLineDTO `json:"lines,omitempty"`
	Record      string             `json:"record"`
}

type BreakdownLineDTO struct {
	Product   string          `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type AcquisitionRequest struct {
	Partner  string          `json:"partner"`
	Product  string          `json:"product"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type CreditSaleRequest struct {
	Partner  string `json:"partner"`
	Product  string `json:"product"`
	Deadline int    `json:"deadline"`
	Quantity int    `json:"quantity"`
}

type BreakdownRequest struct {
	Partner  string `json:"partner"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// =============================================================================
// SNAPSHOTS AND SCENARIOS
// =============================================================================

type SnapshotDTO struct {
	ID        string `json:"id"`
	Day       int    `json:"day"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProductDTO(p *warehouse.Product) ProductDTO {
	dto := ProductDTO{
		Key:      string(p.Key()),
		Kind:     p.Kind().String(),
		MaxPrice: p.MaxPrice(),
		Stock:    p.Stock(),
		Record:   p.String(),
	}
	if recipe, ok := p.Recipe(); ok {
		aggravation := recipe.Aggravation
		dto.Aggravation = &aggravation
		for _, c := range recipe.Components {
			dto.Components = append(dto.Components, ComponentDTO{Product: string(c.Product), Quantity: c.Quantity})
		}
	}
	return dto
}

func toBatchDTOs(batches []generic.Batch) []BatchDTO {
	out := make([]BatchDTO, 0, len(batches))
	for _, b := range batches {
		out = append(out, BatchDTO{
			Product:  string(b.ProductKey),
			Partner:  string(b.PartnerKey),
			Price:    b.Price,
			Quantity: b.Quantity,
			Record:   warehouse.RenderBatch(b),
		})
	}
	return out
}

func toNotificationDTOs(ns []warehouse.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationDTO{
			Kind:    string(n.Kind),
			Product: string(n.Product),
			Price:   n.Price,
			Record:  n.String(),
		})
	}
	return out
}

func toSnapshotDTO(rec generic.SnapshotRecord) SnapshotDTO {
	return SnapshotDTO{
		ID:        rec.ID,
		Day:       int(rec.Day),
		Reason:    string(rec.Reason),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

func toRecipe(req CreateProductRequest) warehouse.Recipe {
	recipe := warehouse.Recipe{Aggravation: req.Aggravation}
	for _, c := range req.Components {
		recipe.Components = append(recipe.Components, warehouse.Component{
			Product:  generic.ProductKey(c.Product),
			Quantity: c.Quantity,
		})
	}
	return recipe
}
