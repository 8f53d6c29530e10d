// internal/interfaces/http/handlers/orders.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/allocation"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"gorm.io/gorm"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService     *order.Service
	inventoryService *inventory.Service
	ledgerService    *transaction.Service
	allocator        *allocation.Service
	config           *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *OrderHandler {
	lk := locker.New(redisClient, cfg)
	logger := logrus.StandardLogger()

	orderService := order.NewService(db, cfg)
	inventoryService := inventory.NewService(db, cfg, lk, logger)
	ledgerService := transaction.NewService(db, cfg)

	return &OrderHandler{
		orderService:     orderService,
		inventoryService: inventoryService,
		ledgerService:    ledgerService,
		allocator:        allocation.NewService(db, cfg, lk, logger, inventoryService, ledgerService),
		config:           cfg,
	}
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var filter order.ListOrdersFilter

	if accountID, ok := parseOptionalUintQuery(c, "account_id"); ok {
		filter.AccountID = accountID
	} else {
		return
	}
	if raw := c.Query("order_type"); raw != "" {
		orderType := order.OrderType(raw)
		if !orderType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid order type",
			})
			return
		}
		filter.OrderType = &orderType
	}

	orders, err := h.orderService.ListOrders(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    orders,
	})
}

// PlaceOrder handles POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req order.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	ord, err := h.orderService.PlaceOrder(&req)
	if err != nil {
		if errors.Is(err, order.ErrInvalidOrderType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid order type",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to place order",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    ord,
	})
}

// GetOrder handles GET /orders/:id, returning the order together with its
// lots, movements, and cash transactions
func (h *OrderHandler) GetOrder(c *gin.Context) {
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

	lots, err := h.inventoryService.ListLots(&id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order lots",
		})
		return
	}

	movements, err := h.inventoryService.ListMovements(&id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order movements",
		})
		return
	}

	transactions, err := h.ledgerService.List(transaction.ListTransactionsFilter{OrderID: &id})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order transactions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data": gin.H{
			"order":        ord,
			"lots":         lots,
			"movements":    movements,
			"transactions": transactions,
		},
	})
}

// UpdateOrder handles PUT /orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req order.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	ord, err := h.orderService.UpdateOrder(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, order.ErrInvalidOrderType):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid order type",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update order",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order updated successfully",
		"data":    ord,
	})
}

// DeleteOrder handles DELETE /orders/:id
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(id); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order deleted successfully",
	})
}

// Calculate handles POST /orders/:id/calculate, running cost allocation
// across the order's unpinned lots or movements
func (h *OrderHandler) Calculate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.allocator.Recalculate(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, locker.ErrNotObtained):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order is being recalculated by another request",
			})
		case errors.Is(err, allocation.ErrOrderChanged):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order changed during recalculation, retry",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to recalculate order",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order recalculated successfully",
		"data":    result,
	})
}
