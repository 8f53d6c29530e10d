// internal/domain/allocation/errors.go
package allocation

import (
	"errors"
	"fmt"
)

// ErrOrderChanged is returned when the order's transactions, lots or
// movements were mutated after the run took its snapshot. The run is rolled
// back and the order stays flagged; retrying picks up the fresh inputs.
var ErrOrderChanged = errors.New("order changed during allocation")

// AllocationError wraps any failure during an allocation run's write-back.
// The run is rolled back as a whole, so the order stays flagged for
// recalculation and the operation is safe to retry.
type AllocationError struct {
	OrderID uint
	Err     error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation failed for order %d: %v", e.OrderID, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}
