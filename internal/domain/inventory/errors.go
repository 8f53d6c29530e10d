// internal/domain/inventory/errors.go
package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrLotNotFound is returned when no lot exists for the given id.
	ErrLotNotFound = errors.New("lot not found")

	// ErrMovementNotFound is returned when no movement exists for the given id.
	ErrMovementNotFound = errors.New("movement not found")

	// ErrDuplicateUPC is returned when a lot's UPC is already in use.
	ErrDuplicateUPC = errors.New("lot with this UPC already exists")

	// ErrInvalidWeight is returned when a weight is zero or negative.
	ErrInvalidWeight = errors.New("weight must be positive")
)

// InsufficientStockError is returned when a movement requests more weight
// than the parent lot has in stock. It carries the shortfall so callers can
// report how many grams were missing.
type InsufficientStockError struct {
	LotID     uint
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on lot %d: requested %dg, available %dg",
		e.LotID, e.Requested, e.Available)
}

// Shortfall returns the number of grams by which the request exceeded stock.
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}
