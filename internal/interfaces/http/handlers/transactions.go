// internal/interfaces/http/handlers/transactions.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"github.com/your-org/trading-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// TransactionHandler handles cash ledger endpoints
type TransactionHandler struct {
	ledgerService *transaction.Service
	config        *config.Config
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(db *gorm.DB, cfg *config.Config) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: transaction.NewService(db, cfg),
		config:        cfg,
	}
}

// transactionPayload carries transaction data with the amount as a signed
// decimal in major units
type transactionPayload struct {
	Amount    decimal.Decimal             `json:"amount" binding:"required"`
	Type      transaction.TransactionType `json:"type" binding:"required"`
	Notes     string                      `json:"notes"`
	Date      time.Time                   `json:"date" binding:"required"`
	AccountID *uint                       `json:"account_id,omitempty"`
	OrderID   *uint                       `json:"order_id,omitempty"`
}

func (p *transactionPayload) toCreateRequest() transaction.CreateTransactionRequest {
	return transaction.CreateTransactionRequest{
		Amount:    money.ToMinorUnits(p.Amount),
		Type:      p.Type,
		Notes:     p.Notes,
		Date:      p.Date,
		AccountID: p.AccountID,
		OrderID:   p.OrderID,
	}
}

// List handles GET /transactions. Without a date range it returns the last
// thirty days.
func (h *TransactionHandler) List(c *gin.Context) {
	var filter transaction.ListTransactionsFilter

	if accountID, ok := parseOptionalUintQuery(c, "account_id"); ok {
		filter.AccountID = accountID
	} else {
		return
	}
	if orderID, ok := parseOptionalUintQuery(c, "order_id"); ok {
		filter.OrderID = orderID
	} else {
		return
	}
	if from, ok := parseOptionalTimeQuery(c, "from"); ok {
		filter.From = from
	} else {
		return
	}
	if to, ok := parseOptionalTimeQuery(c, "to"); ok {
		filter.To = to
	} else {
		return
	}

	transactions, err := h.ledgerService.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve transactions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transactions retrieved successfully",
		"data":    transactions,
	})
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var payload transactionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	req := payload.toCreateRequest()
	txn, err := h.ledgerService.Create(&req)
	if err != nil {
		if errors.Is(err, transaction.ErrInvalidType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown transaction type",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create transaction",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Transaction created successfully",
		"data":    txn,
	})
}

// BulkCreate handles POST /transactions/bulk-create, importing a batch of
// transactions in a single database transaction
func (h *TransactionHandler) BulkCreate(c *gin.Context) {
	var payloads []transactionPayload
	if err := c.ShouldBindJSON(&payloads); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}
	if len(payloads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "At least one transaction required",
		})
		return
	}

	reqs := make([]transaction.CreateTransactionRequest, len(payloads))
	for i := range payloads {
		reqs[i] = payloads[i].toCreateRequest()
	}

	transactions, err := h.ledgerService.BulkCreate(reqs)
	if err != nil {
		if errors.Is(err, transaction.ErrInvalidType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown transaction type",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to import transactions",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Transactions imported successfully",
		"data":    transactions,
	})
}

// Get handles GET /transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	txn, err := h.ledgerService.Get(id)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve transaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction retrieved successfully",
		"data":    txn,
	})
}

// Update handles PUT /transactions/:id
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		Amount    *decimal.Decimal             `json:"amount,omitempty"`
		Type      *transaction.TransactionType `json:"type,omitempty"`
		Notes     *string                      `json:"notes,omitempty"`
		Date      *time.Time                   `json:"date,omitempty"`
		AccountID *uint                        `json:"account_id,omitempty"`
		OrderID   *uint                        `json:"order_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	req := transaction.UpdateTransactionRequest{
		Type:      payload.Type,
		Notes:     payload.Notes,
		Date:      payload.Date,
		AccountID: payload.AccountID,
		OrderID:   payload.OrderID,
	}
	if payload.Amount != nil {
		amount := money.ToMinorUnits(*payload.Amount)
		req.Amount = &amount
	}

	txn, err := h.ledgerService.Update(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, transaction.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Transaction not found",
			})
		case errors.Is(err, transaction.ErrInvalidType):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown transaction type",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update transaction",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction updated successfully",
		"data":    txn,
	})
}

// Delete handles DELETE /transactions/:id
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.ledgerService.Delete(id); err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete transaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction deleted successfully",
	})
}

// AttachToOrder handles PUT /transactions/:id/order
func (h *TransactionHandler) AttachToOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		OrderID uint `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Order ID required",
		})
		return
	}

	txn, err := h.ledgerService.AttachToOrder(id, payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, transaction.ErrTransactionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Transaction not found",
			})
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to attach transaction to order",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction attached to order successfully",
		"data":    txn,
	})
}

// DetachFromOrder handles DELETE /transactions/:id/order
func (h *TransactionHandler) DetachFromOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	txn, err := h.ledgerService.DetachFromOrder(id)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Transaction not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to detach transaction from order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction detached from order successfully",
		"data":    txn,
	})
}

// parseOptionalTimeQuery parses an optional RFC 3339 query parameter,
// writing a 400 response on malformed input
func parseOptionalTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}

	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return nil, false
	}
	return &value, true
}
