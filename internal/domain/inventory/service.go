// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"github.com/your-org/trading-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// Service handles lot and stock ledger business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	locker *locker.Locker
	logger *logrus.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config, lk *locker.Locker, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		locker: lk,
		logger: logger,
	}
}

// CreateLotRequest represents lot intake data
type CreateLotRequest struct {
	UPC          string `json:"upc"`
	Length       int64  `json:"length"`
	Weight       int64  `json:"weight" binding:"required"`
	Price        *int64 `json:"-"` // In minor units, set by the handler from the decimal payload
	IsPriceFixed bool   `json:"is_price_fixed"`
	OrderID      *uint  `json:"order_id,omitempty"`
}

// UpdateLotRequest represents lot update data
type UpdateLotRequest struct {
	Length       *int64 `json:"length,omitempty"`
	IsPriceFixed *bool  `json:"is_price_fixed,omitempty"`
	Price        *int64 `json:"-"`
	OrderID      *uint  `json:"order_id,omitempty"`
}

// RecordMovementRequest represents stock ledger entry data
type RecordMovementRequest struct {
	ParentLotID    uint  `json:"parent_lot_id" binding:"required"`
	OrderID        uint  `json:"order_id" binding:"required"`
	Weight         int64 `json:"weight" binding:"required"`
	RequestedPrice int64 `json:"-"` // In minor units, sign derived from the order type
}

// LOT STORE

// CreateLot creates a new lot with its full weight in stock
func (s *Service) CreateLot(req *CreateLotRequest) (*Lot, error) {
	if req.Weight <= 0 {
		return nil, ErrInvalidWeight
	}

	upc := req.UPC
	if upc == "" {
		upc = uuid.NewString()
	}

	// Check if UPC already exists
	var existing Lot
	if err := s.db.Where("upc = ?", upc).First(&existing).Error; err == nil {
		return nil, ErrDuplicateUPC
	}

	lot := &Lot{
		UPC:           upc,
		Length:        req.Length,
		Weight:        req.Weight,
		WeightInStock: req.Weight,
		IsPriceFixed:  req.IsPriceFixed,
		OrderID:       req.OrderID,
	}
	if req.Price != nil {
		lot.Price = *req.Price
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lot).Error; err != nil {
			return fmt.Errorf("failed to create lot: %w", err)
		}
		if lot.OrderID != nil {
			return s.markOrderDirty(tx, *lot.OrderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lot, nil
}

// GetLot retrieves a lot by id
func (s *Service) GetLot(id uint) (*Lot, error) {
	var lot Lot
	if err := s.db.First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to retrieve lot: %w", err)
	}
	return &lot, nil
}

// GetLotByUPC retrieves a lot by its external code
func (s *Service) GetLotByUPC(upc string) (*Lot, error) {
	var lot Lot
	if err := s.db.Where("upc = ?", upc).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to retrieve lot: %w", err)
	}
	return &lot, nil
}

// ListLots retrieves lots, optionally scoped to an order
func (s *Service) ListLots(orderID *uint) ([]Lot, error) {
	query := s.db.Order("created_at DESC")
	if orderID != nil {
		query = query.Where("order_id = ?", *orderID)
	}

	var lots []Lot
	if err := query.Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve lots: %w", err)
	}
	return lots, nil
}

// UpdateLot updates a lot's attributes. Weight and WeightInStock are not
// editable here; stock only moves through the ledger. Any change to a lot
// owned by an order flags that order for reallocation.
func (s *Service) UpdateLot(id uint, req *UpdateLotRequest) (*Lot, error) {
	lot, err := s.GetLot(id)
	if err != nil {
		return nil, err
	}

	previousOrderID := lot.OrderID

	if req.Length != nil {
		lot.Length = *req.Length
	}
	if req.IsPriceFixed != nil {
		lot.IsPriceFixed = *req.IsPriceFixed
	}
	if req.Price != nil {
		// Direct price writes are the operator's pinning path.
		lot.Price = *req.Price
		lot.IsPriceFixed = true
	}
	if req.OrderID != nil {
		lot.OrderID = req.OrderID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(lot).Error; err != nil {
			return fmt.Errorf("failed to update lot: %w", err)
		}
		if previousOrderID != nil {
			if err := s.markOrderDirty(tx, *previousOrderID); err != nil {
				return err
			}
		}
		if lot.OrderID != nil && (previousOrderID == nil || *lot.OrderID != *previousOrderID) {
			return s.markOrderDirty(tx, *lot.OrderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// DeleteLot removes a lot and its movements
func (s *Service) DeleteLot(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var lot Lot
		if err := tx.First(&lot, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLotNotFound
			}
			return fmt.Errorf("failed to retrieve lot: %w", err)
		}

		if err := tx.Where("parent_lot_id = ?", id).Delete(&Movement{}).Error; err != nil {
			return fmt.Errorf("failed to delete movements: %w", err)
		}
		if err := tx.Delete(&lot).Error; err != nil {
			return fmt.Errorf("failed to delete lot: %w", err)
		}
		if lot.OrderID != nil {
			return s.markOrderDirty(tx, *lot.OrderID)
		}
		return nil
	})
}

// PinLotPrice pins an authoritative price on a lot, excluding it from
// automatic reallocation
func (s *Service) PinLotPrice(id uint, price int64) (*Lot, error) {
	fixed := true
	return s.UpdateLot(id, &UpdateLotRequest{Price: &price, IsPriceFixed: &fixed})
}

// ApplyLotPrice is the allocation engine's write path. Overwriting a
// fixed-price lot is a no-op, not an error.
func (s *Service) ApplyLotPrice(tx *gorm.DB, id uint, price int64) error {
	if err := tx.Model(&Lot{}).
		Where("id = ? AND is_price_fixed = ?", id, false).
		Update("price", price).Error; err != nil {
		return fmt.Errorf("failed to apply lot price: %w", err)
	}
	return nil
}

// ApplyMovementPrice is the allocation engine's write path for movements
func (s *Service) ApplyMovementPrice(tx *gorm.DB, id uint, price int64) error {
	if err := tx.Model(&Movement{}).
		Where("id = ?", id).
		Update("price", price).Error; err != nil {
		return fmt.Errorf("failed to apply movement price: %w", err)
	}
	return nil
}

// STOCK LEDGER

// RecordMovement appends a stock ledger entry: it consumes weight from the
// parent lot and records a price for that slice, signed by the order type
// (Sale positive, Purchase negative). The movement insert, the stock
// decrement and the order's dirty flag are one atomic unit. The check-and-
// decrement is serialized per lot to prevent overselling under concurrency.
func (s *Service) RecordMovement(ctx context.Context, req *RecordMovementRequest) (*Movement, error) {
	if req.Weight <= 0 {
		return nil, ErrInvalidWeight
	}

	release, err := s.locker.Lock(ctx, locker.LotKey(req.ParentLotID))
	if err != nil {
		return nil, err
	}
	defer release()

	var movement *Movement
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var lot Lot
		if err := tx.First(&lot, req.ParentLotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLotNotFound
			}
			return fmt.Errorf("failed to retrieve lot: %w", err)
		}

		if !lot.HasStock(req.Weight) {
			return &InsufficientStockError{
				LotID:     lot.ID,
				Requested: req.Weight,
				Available: lot.WeightInStock,
			}
		}

		ord, err := s.getOrder(tx, req.OrderID)
		if err != nil {
			return err
		}

		movement = &Movement{
			ParentLotID: lot.ID,
			OrderID:     ord.ID,
			Weight:      req.Weight,
			Price:       derivePrice(ord.OrderType, req.RequestedPrice),
		}
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}

		lot.WeightInStock -= req.Weight
		if err := tx.Save(&lot).Error; err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}

		return s.markOrderDirty(tx, ord.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"movement_id": movement.ID,
		"lot_id":      movement.ParentLotID,
		"order_id":    movement.OrderID,
		"weight":      movement.Weight,
	}).Info("Stock movement recorded")

	return movement, nil
}

// GetMovement retrieves a movement with its parent lot
func (s *Service) GetMovement(id uint) (*Movement, error) {
	var movement Movement
	if err := s.db.Preload("ParentLot").First(&movement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovementNotFound
		}
		return nil, fmt.Errorf("failed to retrieve movement: %w", err)
	}
	return &movement, nil
}

// ListMovements retrieves movements, optionally scoped to an order
func (s *Service) ListMovements(orderID *uint) ([]Movement, error) {
	query := s.db.Preload("ParentLot").Order("created_at DESC")
	if orderID != nil {
		query = query.Where("order_id = ?", *orderID)
	}

	var movements []Movement
	if err := query.Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}

// EditMovement rewrites a movement's weight and price. The parent lot's
// stock moves with the weight change: growing a movement draws the extra
// grams from the lot, shrinking it returns them. A change the lot cannot
// cover is rejected. The order is flagged for reallocation.
func (s *Service) EditMovement(ctx context.Context, id uint, weight int64, requestedPrice int64) (*Movement, error) {
	if weight <= 0 {
		return nil, ErrInvalidWeight
	}

	var movement Movement
	if err := s.db.First(&movement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMovementNotFound
		}
		return nil, fmt.Errorf("failed to retrieve movement: %w", err)
	}

	release, err := s.locker.Lock(ctx, locker.LotKey(movement.ParentLotID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Re-read under the lock; the lot may have moved since the lookup.
		if err := tx.First(&movement, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMovementNotFound
			}
			return fmt.Errorf("failed to retrieve movement: %w", err)
		}

		var lot Lot
		if err := tx.First(&lot, movement.ParentLotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLotNotFound
			}
			return fmt.Errorf("failed to retrieve lot: %w", err)
		}

		delta := weight - movement.Weight
		if delta > lot.WeightInStock {
			return &InsufficientStockError{
				LotID:     lot.ID,
				Requested: delta,
				Available: lot.WeightInStock,
			}
		}

		ord, err := s.getOrder(tx, movement.OrderID)
		if err != nil {
			return err
		}

		movement.Weight = weight
		movement.Price = derivePrice(ord.OrderType, requestedPrice)
		if err := tx.Save(&movement).Error; err != nil {
			return fmt.Errorf("failed to update movement: %w", err)
		}

		if delta != 0 {
			lot.WeightInStock -= delta
			if err := tx.Save(&lot).Error; err != nil {
				return fmt.Errorf("failed to adjust stock: %w", err)
			}
		}

		return s.markOrderDirty(tx, ord.ID)
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

// DeleteMovement removes a ledger entry. The consumed grams stay consumed:
// deletion does not restore the parent lot's stock.
func (s *Service) DeleteMovement(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var movement Movement
		if err := tx.First(&movement, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMovementNotFound
			}
			return fmt.Errorf("failed to retrieve movement: %w", err)
		}

		if err := tx.Delete(&movement).Error; err != nil {
			return fmt.Errorf("failed to delete movement: %w", err)
		}

		return s.markOrderDirty(tx, movement.OrderID)
	})
}

// derivePrice applies the canonical sign convention: sale slices are
// recorded positive, purchase slices negative.
func derivePrice(orderType order.OrderType, requestedPrice int64) int64 {
	if orderType == order.OrderTypeSale {
		return money.Abs(requestedPrice)
	}
	return money.Negate(requestedPrice)
}

func (s *Service) getOrder(tx *gorm.DB, orderID uint) (*order.Order, error) {
	var ord order.Order
	if err := tx.First(&ord, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &ord, nil
}

func (s *Service) markOrderDirty(tx *gorm.DB, orderID uint) error {
	result := tx.Model(&order.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"needs_recalculation": true,
			"revision":            gorm.Expr("revision + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to flag order for recalculation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}
