// internal/domain/allocation/service.go
package allocation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"github.com/your-org/trading-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// Service is the allocation engine. Given an order's transactions, lots and
// movements, it computes a uniform per-gram price and republishes it onto
// every non-fixed-price item belonging to that order, clearing the order's
// recalculation flag.
//
// Fixed-price items let an operator pin an authoritative price; the
// remaining inventory absorbs whatever cash is left over, spread
// proportionally to weight.
type Service struct {
	db        *gorm.DB
	config    *config.Config
	locker    *locker.Locker
	logger    *logrus.Logger
	inventory *inventory.Service
	ledger    *transaction.Service
}

// NewService creates a new allocation engine
func NewService(db *gorm.DB, cfg *config.Config, lk *locker.Locker, logger *logrus.Logger,
	inv *inventory.Service, ledger *transaction.Service) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		locker:    lk,
		logger:    logger,
		inventory: inv,
		ledger:    ledger,
	}
}

// Result describes a completed allocation run
type Result struct {
	OrderID            uint    `json:"order_id"`
	CashTotal          int64   `json:"cash_total"`      // In minor units, signed
	FixedCost          int64   `json:"fixed_cost"`      // In minor units, signed
	UnitPrice          float64 `json:"unit_price"`      // Minor units per gram
	VariableWeight     int64   `json:"variable_weight"` // Grams across repriced items
	ItemsRepriced      int     `json:"items_repriced"`
	ZeroVariableWeight bool    `json:"zero_variable_weight"`
}

// priceItem is the neutral shape both lots and movements reduce to for
// allocation. Purchase orders price their lots; sale orders price their
// movements. One routine serves both.
type priceItem struct {
	id     uint
	weight int64
	price  int64
	fixed  bool
}

// Recalculate reprices an order's variable items so that the order's cash
// total is fully accounted for. The run is serialized per order, and the
// input snapshot, the price write-back and the flag clear all happen in a
// single database transaction: a failed run leaves the order dirty and
// untouched. The flag clear is guarded by the order's revision, so a
// mutation landing after the snapshot rolls the whole run back instead of
// publishing prices that never saw it.
func (s *Service) Recalculate(ctx context.Context, orderID uint) (*Result, error) {
	release, err := s.locker.Lock(ctx, locker.OrderKey(orderID))
	if err != nil {
		return nil, err
	}
	defer release()

	result := &Result{OrderID: orderID}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var ord order.Order
		if err := tx.First(&ord, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return order.ErrOrderNotFound
			}
			return fmt.Errorf("failed to retrieve order: %w", err)
		}

		cashTotal, err := s.ledger.OrderCashTotal(tx, orderID)
		if err != nil {
			return err
		}
		result.CashTotal = cashTotal

		items, err := s.loadItems(tx, &ord)
		if err != nil {
			return err
		}

		var variable []priceItem
		var variableWeight int64
		for _, item := range items {
			if item.fixed {
				result.FixedCost += item.price
			} else {
				variable = append(variable, item)
				variableWeight += item.weight
			}
		}
		result.VariableWeight = variableWeight

		// Cash value left to distribute across variable items. Outgoing
		// purchase payments are negative, so the absolute value below yields
		// a positive per-gram rate either way.
		unaccounted := cashTotal + result.FixedCost

		if variableWeight == 0 {
			// Degenerate case: nothing to distribute over. Prices stay as
			// they are, but the inputs have been accounted for, so the flag
			// clears.
			result.ZeroVariableWeight = true
			return s.clearFlag(tx, &ord)
		}

		result.UnitPrice = float64(money.Abs(unaccounted)) / float64(variableWeight)

		// The minor-unit scale is already present in unaccounted; it is
		// applied exactly once, here.
		for _, item := range variable {
			price := int64(math.Floor(float64(item.weight) * result.UnitPrice))
			if ord.IsSale() {
				if err := s.inventory.ApplyMovementPrice(tx, item.id, price); err != nil {
					return err
				}
			} else {
				if err := s.inventory.ApplyLotPrice(tx, item.id, price); err != nil {
					return err
				}
			}
		}
		result.ItemsRepriced = len(variable)

		return s.clearFlag(tx, &ord)
	})
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, err
		}
		return nil, &AllocationError{OrderID: orderID, Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":        orderID,
		"cash_total":      result.CashTotal,
		"fixed_cost":      result.FixedCost,
		"unit_price":      result.UnitPrice,
		"items_repriced":  result.ItemsRepriced,
		"variable_weight": result.VariableWeight,
	}).Info("Order allocation completed")

	return result, nil
}

// loadItems reduces the order's priceable pool to neutral items: lots for
// purchase orders, movements for sale orders. A movement counts as fixed
// when its parent lot's price is pinned.
func (s *Service) loadItems(tx *gorm.DB, ord *order.Order) ([]priceItem, error) {
	if ord.IsSale() {
		var movements []inventory.Movement
		if err := tx.Preload("ParentLot").
			Where("order_id = ?", ord.ID).Find(&movements).Error; err != nil {
			return nil, fmt.Errorf("failed to load movements: %w", err)
		}
		items := make([]priceItem, 0, len(movements))
		for _, m := range movements {
			items = append(items, priceItem{
				id:     m.ID,
				weight: m.Weight,
				price:  m.Price,
				fixed:  m.ParentLot.IsPriceFixed,
			})
		}
		return items, nil
	}

	var lots []inventory.Lot
	if err := tx.Where("order_id = ?", ord.ID).Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to load lots: %w", err)
	}
	items := make([]priceItem, 0, len(lots))
	for _, l := range lots {
		items = append(items, priceItem{
			id:     l.ID,
			weight: l.Weight,
			price:  l.Price,
			fixed:  l.IsPriceFixed,
		})
	}
	return items, nil
}

// clearFlag marks the order clean, but only at the revision the snapshot
// was taken from. A bumped revision means a mutation slipped in after the
// reads; its inputs were never priced, so the flag must survive.
func (s *Service) clearFlag(tx *gorm.DB, ord *order.Order) error {
	result := tx.Model(&order.Order{}).
		Where("id = ? AND revision = ?", ord.ID, ord.Revision).
		Update("needs_recalculation", false)
	if result.Error != nil {
		return fmt.Errorf("failed to clear recalculation flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderChanged
	}
	return nil
}
