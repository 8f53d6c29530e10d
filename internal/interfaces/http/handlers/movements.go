// internal/interfaces/http/handlers/movements.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"github.com/your-org/trading-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// MovementHandler handles stock movement endpoints
type MovementHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *MovementHandler {
	lk := locker.New(redisClient, cfg)

	return &MovementHandler{
		inventoryService: inventory.NewService(db, cfg, lk, logrus.StandardLogger()),
		config:           cfg,
	}
}

// recordMovementPayload carries movement data with the price as a decimal
// amount in major units
type recordMovementPayload struct {
	ParentLotID uint            `json:"parent_lot_id" binding:"required"`
	OrderID     uint            `json:"order_id" binding:"required"`
	Weight      int64           `json:"weight" binding:"required"`
	Price       decimal.Decimal `json:"price"`
}

// ListMovements handles GET /movements
func (h *MovementHandler) ListMovements(c *gin.Context) {
	orderID, ok := parseOptionalUintQuery(c, "order_id")
	if !ok {
		return
	}

	movements, err := h.inventoryService.ListMovements(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve movements",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movements retrieved successfully",
		"data":    movements,
	})
}

// RecordMovement handles POST /movements
func (h *MovementHandler) RecordMovement(c *gin.Context) {
	var payload recordMovementPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	req := inventory.RecordMovementRequest{
		ParentLotID:    payload.ParentLotID,
		OrderID:        payload.OrderID,
		Weight:         payload.Weight,
		RequestedPrice: money.ToMinorUnits(payload.Price),
	}

	movement, err := h.inventoryService.RecordMovement(c.Request.Context(), &req)
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Insufficient stock",
				"data": gin.H{
					"lot_id":    stockErr.LotID,
					"requested": stockErr.Requested,
					"available": stockErr.Available,
					"shortfall": stockErr.Shortfall(),
				},
			})
		case errors.Is(err, inventory.ErrLotNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lot not found",
			})
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, inventory.ErrInvalidWeight):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Weight must be positive",
			})
		case errors.Is(err, locker.ErrNotObtained):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Lot is locked by another request",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to record movement",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Movement recorded successfully",
		"data":    movement,
	})
}

// GetMovement handles GET /movements/:id
func (h *MovementHandler) GetMovement(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	movement, err := h.inventoryService.GetMovement(id)
	if err != nil {
		if errors.Is(err, inventory.ErrMovementNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Movement not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve movement",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movement retrieved successfully",
		"data":    movement,
	})
}

// EditMovement handles PUT /movements/:id
func (h *MovementHandler) EditMovement(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		Weight int64           `json:"weight" binding:"required"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	movement, err := h.inventoryService.EditMovement(c.Request.Context(), id, payload.Weight, money.ToMinorUnits(payload.Price))
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Insufficient stock",
				"data": gin.H{
					"lot_id":    stockErr.LotID,
					"requested": stockErr.Requested,
					"available": stockErr.Available,
					"shortfall": stockErr.Shortfall(),
				},
			})
		case errors.Is(err, inventory.ErrMovementNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Movement not found",
			})
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, inventory.ErrInvalidWeight):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Weight must be positive",
			})
		case errors.Is(err, locker.ErrNotObtained):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Lot is locked by another request",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update movement",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movement updated successfully",
		"data":    movement,
	})
}

// DeleteMovement handles DELETE /movements/:id. The parent lot's stock is
// not restored; deletion only removes the ledger entry and flags the order.
func (h *MovementHandler) DeleteMovement(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteMovement(id); err != nil {
		if errors.Is(err, inventory.ErrMovementNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Movement not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete movement",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Movement deleted successfully",
	})
}
