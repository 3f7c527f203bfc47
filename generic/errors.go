/*
errors.go - Centralized error types for the wholesale engine

PURPOSE:
  All failure signals in one place for consistency and discoverability.
  Every signal is data: it carries the offending key or value, and the
  front-end decides how to phrase it.

ERROR CATEGORIES:
  1. Lookup errors - Unknown partner/product/transaction
  2. Registration errors - Duplicate partner/product
  3. Stock errors - Insufficient stock (direct or transitive)
  4. Clock errors - Non-positive date increment
  5. Collaborator errors - Persistence and import failures

USAGE:
  Callers branch with errors.Is / errors.As:

    var short *generic.InsufficientStockError
    if errors.As(err, &short) {
        fmt.Println(short.ProductKey, short.Requested, short.Available)
    }

SEE ALSO:
  - warehouse/warehouse.go: Raises lookup, registration and stock errors
  - api/handlers.go: Maps errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownPartner is returned by any lookup of a partner key that is not registered.
	ErrUnknownPartner = errors.New("unknown partner")

	// ErrUnknownProduct is returned by any lookup of a product key that is not registered.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrUnknownTransaction is returned by any lookup of a transaction id that was never assigned.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrDuplicatePartner is returned when a partner key is registered twice.
	ErrDuplicatePartner = errors.New("duplicate partner")

	// ErrDuplicateProduct is returned when a product key is registered twice.
	ErrDuplicateProduct = errors.New("duplicate product")

	// ErrInsufficientStock is returned when more units are requested than available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidDateIncrement is returned when the clock is advanced by a non-positive amount.
	ErrInvalidDateIncrement = errors.New("invalid date increment")

	// ErrMissingFileAssociation is returned by the persistence layer when there is nothing to load.
	ErrMissingFileAssociation = errors.New("missing file association")

	// ErrUnavailableFile is returned by the persistence layer when a snapshot cannot be read.
	ErrUnavailableFile = errors.New("unavailable file")

	// ErrBadEntry is returned by the importer for a malformed record.
	ErrBadEntry = errors.New("bad entry")

	// ErrInvalidAmount is returned for non-positive quantities or negative prices.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRecipe is returned for an empty recipe, a non-positive multiplier
	// or a negative aggravation factor.
	ErrInvalidRecipe = errors.New("invalid recipe")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownPartnerError names the partner key that was not found.
type UnknownPartnerError struct {
	Key PartnerKey
}

func (e *UnknownPartnerError) Error() string { return fmt.Sprintf("unknown partner: %s", e.Key) }
func (e *UnknownPartnerError) Unwrap() error { return ErrUnknownPartner }

// UnknownProductError names the product key that was not found.
type UnknownProductError struct {
	Key ProductKey
}

func (e *UnknownProductError) Error() string { return fmt.Sprintf("unknown product: %s", e.Key) }
func (e *UnknownProductError) Unwrap() error { return ErrUnknownProduct }

// UnknownTransactionError names the transaction id that was not found.
type UnknownTransactionError struct {
	ID TransactionID
}

func (e *UnknownTransactionError) Error() string {
	return fmt.Sprintf("unknown transaction: %d", e.ID)
}
func (e *UnknownTransactionError) Unwrap() error { return ErrUnknownTransaction }

// DuplicatePartnerError names the partner key that is already registered.
type DuplicatePartnerError struct {
	Key PartnerKey
}

func (e *DuplicatePartnerError) Error() string { return fmt.Sprintf("duplicate partner: %s", e.Key) }
func (e *DuplicatePartnerError) Unwrap() error { return ErrDuplicatePartner }

// DuplicateProductError names the product key that is already registered.
type DuplicateProductError struct {
	Key ProductKey
}

func (e *DuplicateProductError) Error() string { return fmt.Sprintf("duplicate product: %s", e.Key) }
func (e *DuplicateProductError) Unwrap() error { return ErrDuplicateProduct }

// InsufficientStockError provides details about a stock shortage. For
// recursive aggregation checks ProductKey names the component that was short.
type InsufficientStockError struct {
	ProductKey ProductKey
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductKey, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidDateIncrementError carries the rejected increment.
type InvalidDateIncrementError struct {
	Increment int
}

func (e *InvalidDateIncrementError) Error() string {
	return fmt.Sprintf("invalid date increment: %d", e.Increment)
}

func (e *InvalidDateIncrementError) Unwrap() error { return ErrInvalidDateIncrement }

// BadEntryError describes a malformed import record.
type BadEntryError struct {
	Line   int
	Entry  string
	Reason string
}

func (e *BadEntryError) Error() string {
	return fmt.Sprintf("bad entry at line %d (%s): %q", e.Line, e.Reason, e.Entry)
}

func (e *BadEntryError) Unwrap() error { return ErrBadEntry }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownPartner) ||
		errors.Is(err, ErrUnknownProduct) ||
		errors.Is(err, ErrUnknownTransaction)
}

// IsDuplicate returns true if the error indicates a key collision.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicatePartner) || errors.Is(err, ErrDuplicateProduct)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidDateIncrement) ||
		errors.Is(err, ErrBadEntry) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidRecipe) ||
		IsDuplicate(err)
}
