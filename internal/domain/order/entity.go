// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"
)

// OrderType represents the commercial direction of an order
type OrderType string

const (
	OrderTypeSale     OrderType = "Sale"
	OrderTypePurchase OrderType = "Purchase"
)

// Valid reports whether the order type is one of the known values
func (t OrderType) Valid() bool {
	return t == OrderTypeSale || t == OrderTypePurchase
}

// Order represents the order entity. Total is derived from the order's
// transactions and kept in sync by the transaction ledger. NeedsRecalculation
// is the pricing-consistency flag: true means derived lot/movement prices may
// be stale; only a successful allocation run clears it. Revision increments
// with every mutation that flags the order, so the allocation engine can
// detect inputs that changed after its snapshot and refuse to clear the flag.
type Order struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	OrderType          OrderType      `gorm:"not null;size:20;index" json:"order_type"`
	Total              int64          `gorm:"not null;default:0" json:"total"` // In minor units
	NeedsRecalculation bool           `gorm:"not null;default:false" json:"needs_recalculation"`
	Revision           uint           `gorm:"not null;default:0" json:"-"`
	PlacedAt           time.Time      `gorm:"not null;index" json:"placed_at"`
	AccountID          *uint          `gorm:"index" json:"account_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Order) TableName() string { return "orders" }

// IsSale reports whether this is a sale order
func (o *Order) IsSale() bool {
	return o.OrderType == OrderTypeSale
}

// IsClean reports whether derived prices reflect the order's current inputs
func (o *Order) IsClean() bool {
	return !o.NeedsRecalculation
}
