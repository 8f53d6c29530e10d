// internal/interfaces/http/handlers/statement.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/account"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"github.com/your-org/trading-backend/internal/pkg/money"
	"github.com/your-org/trading-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// StatementHandler handles order statement endpoints
type StatementHandler struct {
	orderService     *order.Service
	inventoryService *inventory.Service
	ledgerService    *transaction.Service
	accountService   *account.Service
	pdfService       *pdf.Service
	config           *config.Config
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *StatementHandler {
	lk := locker.New(redisClient, cfg)

	return &StatementHandler{
		orderService:     order.NewService(db, cfg),
		inventoryService: inventory.NewService(db, cfg, lk, logrus.StandardLogger()),
		ledgerService:    transaction.NewService(db, cfg),
		accountService:   account.NewService(db, cfg),
		pdfService:       pdf.NewService(cfg),
		config:           cfg,
	}
}

// GenerateStatement handles GET /orders/:id/statement
func (h *StatementHandler) GenerateStatement(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ord, err := h.orderService.GetOrder(id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order",
		})
		return
	}

	data, err := h.buildStatement(ord)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to assemble statement",
		})
		return
	}

	// Generate PDF statement
	pdfBuffer, err := h.pdfService.GenerateStatement(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate statement",
		})
		return
	}

	// Set headers for PDF download
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=statement-%d.pdf", ord.ID))
	c.Header("Content-Length", strconv.Itoa(len(pdfBuffer.Bytes())))

	// Send PDF
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}

// buildStatement gathers the order's goods and cash lines. Purchase orders
// list their lots; sale orders list their movements.
func (h *StatementHandler) buildStatement(ord *order.Order) (*pdf.StatementData, error) {
	data := &pdf.StatementData{
		StatementNumber: fmt.Sprintf("STM-%d", ord.ID),
		OrderID:         ord.ID,
		OrderType:       string(ord.OrderType),
		PlacedAt:        ord.PlacedAt.Format("January 2, 2006"),
		NeedsRecalc:     ord.NeedsRecalculation,
	}

	if ord.AccountID != nil {
		acc, err := h.accountService.GetAccount(*ord.AccountID)
		if err != nil {
			return nil, err
		}
		data.AccountName = acc.FullName
	}

	var itemsTotal int64
	if ord.IsSale() {
		movements, err := h.inventoryService.ListMovements(&ord.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range movements {
			itemsTotal += m.Price
			data.Items = append(data.Items, pdf.StatementItem{
				Label:  fmt.Sprintf("Movement #%d", m.ID),
				UPC:    m.ParentLot.UPC,
				Weight: m.Weight,
				Fixed:  m.ParentLot.IsPriceFixed,
				Price:  formatAmount(m.Price),
			})
		}
	} else {
		lots, err := h.inventoryService.ListLots(&ord.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range lots {
			itemsTotal += l.Price
			data.Items = append(data.Items, pdf.StatementItem{
				Label:  fmt.Sprintf("Lot #%d", l.ID),
				UPC:    l.UPC,
				Weight: l.Weight,
				Fixed:  l.IsPriceFixed,
				Price:  formatAmount(l.Price),
			})
		}
	}

	transactions, err := h.ledgerService.List(transaction.ListTransactionsFilter{OrderID: &ord.ID})
	if err != nil {
		return nil, err
	}
	for _, t := range transactions {
		data.Transactions = append(data.Transactions, pdf.StatementTxn{
			Date:   t.Date.Format("2006-01-02"),
			Type:   string(t.Type),
			Notes:  t.Notes,
			Amount: formatAmount(t.Amount),
		})
	}

	data.ItemsTotal = formatAmount(itemsTotal)
	data.CashTotal = formatAmount(ord.Total)

	return data, nil
}

// formatAmount renders a minor-unit amount as a decimal string
func formatAmount(amount int64) string {
	return money.FromMinorUnits(amount).StringFixed(2)
}
