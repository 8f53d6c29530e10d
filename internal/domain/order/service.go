// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/trading-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles order business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// PlaceOrderRequest represents order creation data
type PlaceOrderRequest struct {
	OrderType OrderType `json:"order_type" binding:"required"`
	AccountID *uint     `json:"account_id,omitempty"`
	PlacedAt  time.Time `json:"placed_at" binding:"required"`
}

// UpdateOrderRequest represents order update data
type UpdateOrderRequest struct {
	OrderType *OrderType `json:"order_type,omitempty"`
	AccountID *uint      `json:"account_id,omitempty"`
	PlacedAt  *time.Time `json:"placed_at,omitempty"`
}

// ListOrdersFilter narrows ListOrders results
type ListOrdersFilter struct {
	AccountID *uint
	OrderType *OrderType
}

// PlaceOrder creates a new, empty order
func (s *Service) PlaceOrder(req *PlaceOrderRequest) (*Order, error) {
	if !req.OrderType.Valid() {
		return nil, ErrInvalidOrderType
	}

	order := &Order{
		OrderType: req.OrderType,
		AccountID: req.AccountID,
		PlacedAt:  req.PlacedAt,
	}

	if err := s.db.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// GetOrder retrieves an order by id
func (s *Service) GetOrder(id uint) (*Order, error) {
	var order Order
	if err := s.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// ListOrders retrieves orders, most recently placed first
func (s *Service) ListOrders(filter ListOrdersFilter) ([]Order, error) {
	query := s.db.Order("placed_at DESC")
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.OrderType != nil {
		query = query.Where("order_type = ?", *filter.OrderType)
	}

	var orders []Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// UpdateOrder updates an order's own attributes. Changing the order type
// changes the sign convention of its movement prices, so the order is
// flagged for reallocation.
func (s *Service) UpdateOrder(id uint, req *UpdateOrderRequest) (*Order, error) {
	order, err := s.GetOrder(id)
	if err != nil {
		return nil, err
	}

	if req.OrderType != nil {
		if !req.OrderType.Valid() {
			return nil, ErrInvalidOrderType
		}
		if *req.OrderType != order.OrderType {
			order.NeedsRecalculation = true
			order.Revision++
		}
		order.OrderType = *req.OrderType
	}
	if req.AccountID != nil {
		order.AccountID = req.AccountID
	}
	if req.PlacedAt != nil {
		order.PlacedAt = *req.PlacedAt
	}

	if err := s.db.Save(order).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return order, nil
}

// DeleteOrder deletes an order. Referencing rows are detached rather than
// deleted: transactions and lots lose their order reference, movements are
// removed with the order that scoped them. Stock is not restored.
func (s *Service) DeleteOrder(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order Order
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}

		if err := tx.Table("transactions").Where("order_id = ?", id).
			Update("order_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach transactions: %w", err)
		}
		if err := tx.Table("lots").Where("order_id = ?", id).
			Update("order_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach lots: %w", err)
		}
		if err := tx.Exec("DELETE FROM movements WHERE order_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to remove movements: %w", err)
		}

		if err := tx.Delete(&order).Error; err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
		return nil
	})
}

// MarkDirty flags an order for reallocation
func (s *Service) MarkDirty(id uint) error {
	return s.setDirty(s.db, id, true)
}

// ClearDirty marks an order's derived prices as consistent. Only the
// allocation engine should call this after a successful run.
func (s *Service) ClearDirty(id uint) error {
	return s.setDirty(s.db, id, false)
}

func (s *Service) setDirty(db *gorm.DB, id uint, dirty bool) error {
	values := map[string]interface{}{"needs_recalculation": dirty}
	if dirty {
		values["revision"] = gorm.Expr("revision + 1")
	}
	result := db.Model(&Order{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update recalculation flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
