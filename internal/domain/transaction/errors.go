// internal/domain/transaction/errors.go
package transaction

import "errors"

var (
	// ErrTransactionNotFound is returned when no transaction exists for the
	// given id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidType is returned when the payment method is unknown.
	ErrInvalidType = errors.New("unknown transaction type")
)
