// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"gorm.io/gorm"
)

// Lot represents a quantity of weighable stock tracked as one unit.
// WeightInStock is decremented exclusively through movement creation; Price
// is either pinned by an operator (IsPriceFixed) or rewritten by the
// allocation engine.
type Lot struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UPC           string         `gorm:"uniqueIndex;not null;size:50" json:"upc"`
	Length        int64          `gorm:"default:0" json:"length"`                 // In centimetres
	Weight        int64          `gorm:"not null" json:"weight"`                  // Nominal weight in grams
	WeightInStock int64          `gorm:"not null" json:"weight_in_stock"`         // Grams remaining
	Price         int64          `gorm:"not null;default:0" json:"price"`         // In minor units
	IsPriceFixed  bool           `gorm:"not null;default:false" json:"is_price_fixed"`
	OrderID       *uint          `gorm:"index" json:"order_id"` // Unassigned lots exist standalone
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Movements []Movement `gorm:"foreignKey:ParentLotID" json:"movements,omitempty"`
}

// Movement represents a stock ledger entry that consumes weight from a lot
// in the context of an order. Created atomically with the parent lot's
// WeightInStock decrement; deletion does not restock.
type Movement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ParentLotID uint      `gorm:"not null;index" json:"parent_lot_id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	Weight      int64     `gorm:"not null" json:"weight"` // Grams consumed by this movement
	Price       int64     `gorm:"not null" json:"price"`  // In minor units, signed by order type
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	ParentLot Lot `gorm:"foreignKey:ParentLotID" json:"parent_lot,omitempty"`
}

// TableName overrides
func (Lot) TableName() string      { return "lots" }
func (Movement) TableName() string { return "movements" }

// HasStock reports whether the lot can cover a movement of the given weight
func (l *Lot) HasStock(weight int64) bool {
	return l.WeightInStock >= weight
}

// IsDepleted reports whether the lot has no remaining stock
func (l *Lot) IsDepleted() bool {
	return l.WeightInStock <= 0
}
