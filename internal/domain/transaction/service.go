// internal/domain/transaction/service.go
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Service handles the financial transaction ledger. It is the sole writer of
// an order's cached total: every mutation touching a transaction with an
// order reference recomputes that order's total and flags it for
// reallocation, in the same database transaction.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new transaction service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateTransactionRequest represents transaction creation data
type CreateTransactionRequest struct {
	Amount    int64           `json:"-"` // In minor units, set by the handler from the decimal payload
	Type      TransactionType `json:"type" binding:"required"`
	Notes     string          `json:"notes"`
	Date      time.Time       `json:"date" binding:"required"`
	AccountID *uint           `json:"account_id,omitempty"`
	OrderID   *uint           `json:"order_id,omitempty"`
}

// UpdateTransactionRequest represents transaction update data
type UpdateTransactionRequest struct {
	Amount    *int64           `json:"-"`
	Type      *TransactionType `json:"type,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
	Date      *time.Time       `json:"date,omitempty"`
	AccountID *uint            `json:"account_id,omitempty"`
	OrderID   *uint            `json:"order_id,omitempty"`
}

// ListTransactionsFilter narrows List results. From/To default to the last
// thirty days when unset.
type ListTransactionsFilter struct {
	From      *time.Time
	To        *time.Time
	AccountID *uint
	OrderID   *uint
}

// Create records a new transaction
func (s *Service) Create(req *CreateTransactionRequest) (*Transaction, error) {
	if !req.Type.Valid() {
		return nil, ErrInvalidType
	}

	txn := &Transaction{
		Amount:    req.Amount,
		Type:      req.Type,
		Notes:     req.Notes,
		Date:      req.Date,
		AccountID: req.AccountID,
		OrderID:   req.OrderID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return s.refreshOrderTotals(tx, txn.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// BulkCreate records a batch of transactions, typically from a bank
// statement import
func (s *Service) BulkCreate(reqs []CreateTransactionRequest) ([]Transaction, error) {
	txns := make([]Transaction, 0, len(reqs))
	for _, req := range reqs {
		if !req.Type.Valid() {
			return nil, ErrInvalidType
		}
		txns = append(txns, Transaction{
			Amount:    req.Amount,
			Type:      req.Type,
			Notes:     req.Notes,
			Date:      req.Date,
			AccountID: req.AccountID,
			OrderID:   req.OrderID,
		})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txns).Error; err != nil {
			return fmt.Errorf("failed to create transactions: %w", err)
		}
		seen := make(map[uint]bool)
		for _, txn := range txns {
			if txn.OrderID != nil && !seen[*txn.OrderID] {
				seen[*txn.OrderID] = true
				if err := s.refreshOrderTotals(tx, txn.OrderID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// Get retrieves a transaction by id
func (s *Service) Get(id uint) (*Transaction, error) {
	var txn Transaction
	if err := s.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to retrieve transaction: %w", err)
	}
	return &txn, nil
}

// List retrieves transactions in a date window, newest first
func (s *Service) List(filter ListTransactionsFilter) ([]Transaction, error) {
	to := time.Now()
	if filter.To != nil {
		to = *filter.To
	}
	from := to.AddDate(0, 0, -30)
	if filter.From != nil {
		from = *filter.From
	}

	query := s.db.Where("date >= ? AND date <= ?", from, to).Order("date DESC")
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}

	var txns []Transaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}
	return txns, nil
}

// Update edits a transaction. If the transaction references an order before
// or after the edit, each affected order's total is recomputed and the order
// flagged for reallocation.
func (s *Service) Update(id uint, req *UpdateTransactionRequest) (*Transaction, error) {
	var txn Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("failed to retrieve transaction: %w", err)
		}

		previousOrderID := txn.OrderID

		if req.Amount != nil {
			txn.Amount = *req.Amount
		}
		if req.Type != nil {
			if !req.Type.Valid() {
				return ErrInvalidType
			}
			txn.Type = *req.Type
		}
		if req.Notes != nil {
			txn.Notes = *req.Notes
		}
		if req.Date != nil {
			txn.Date = *req.Date
		}
		if req.AccountID != nil {
			txn.AccountID = req.AccountID
		}
		if req.OrderID != nil {
			txn.OrderID = req.OrderID
		}

		if err := tx.Save(&txn).Error; err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}

		if err := s.refreshOrderTotals(tx, previousOrderID); err != nil {
			return err
		}
		if txn.OrderID != nil && (previousOrderID == nil || *txn.OrderID != *previousOrderID) {
			return s.refreshOrderTotals(tx, txn.OrderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Delete removes a transaction and refreshes the referenced order, if any
func (s *Service) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var txn Transaction
		if err := tx.First(&txn, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("failed to retrieve transaction: %w", err)
		}

		if err := tx.Delete(&txn).Error; err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}

		return s.refreshOrderTotals(tx, txn.OrderID)
	})
}

// AttachToOrder points a transaction at an order and refreshes both the old
// and the new order
func (s *Service) AttachToOrder(id uint, orderID uint) (*Transaction, error) {
	return s.Update(id, &UpdateTransactionRequest{OrderID: &orderID})
}

// DetachFromOrder removes a transaction's order reference
func (s *Service) DetachFromOrder(id uint) (*Transaction, error) {
	var txn Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("failed to retrieve transaction: %w", err)
		}

		previousOrderID := txn.OrderID
		txn.OrderID = nil
		if err := tx.Save(&txn).Error; err != nil {
			return fmt.Errorf("failed to detach transaction: %w", err)
		}

		return s.refreshOrderTotals(tx, previousOrderID)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// OrderCashTotal sums the amounts of an order's transactions
func (s *Service) OrderCashTotal(tx *gorm.DB, orderID uint) (int64, error) {
	var total int64
	err := tx.Model(&Transaction{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum order transactions: %w", err)
	}
	return total, nil
}

// refreshOrderTotals recomputes the cached total of the given order and
// flags it for reallocation. A nil orderID is a no-op.
func (s *Service) refreshOrderTotals(tx *gorm.DB, orderID *uint) error {
	if orderID == nil {
		return nil
	}

	total, err := s.OrderCashTotal(tx, *orderID)
	if err != nil {
		return err
	}

	result := tx.Model(&order.Order{}).Where("id = ?", *orderID).Updates(map[string]interface{}{
		"total":               total,
		"needs_recalculation": true,
		"revision":            gorm.Expr("revision + 1"),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to refresh order total: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}
