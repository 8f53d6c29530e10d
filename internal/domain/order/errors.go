// internal/domain/order/errors.go
package order

import "errors"

var (
	// ErrOrderNotFound is returned when no order exists for the given id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidOrderType is returned when the order type is neither Sale
	// nor Purchase.
	ErrInvalidOrderType = errors.New("order type must be Sale or Purchase")
)
