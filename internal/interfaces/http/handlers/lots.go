// internal/interfaces/http/handlers/lots.go
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
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"github.com/your-org/trading-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// LotHandler handles inventory lot endpoints
type LotHandler struct {
	inventoryService *inventory.Service
	config           *config.Config
}

// NewLotHandler creates a new lot handler
func NewLotHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *LotHandler {
	lk := locker.New(redisClient, cfg)

	return &LotHandler{
		inventoryService: inventory.NewService(db, cfg, lk, logrus.StandardLogger()),
		config:           cfg,
	}
}

// createLotPayload carries lot creation data with the price as a decimal
// amount in major units
type createLotPayload struct {
	UPC          string           `json:"upc"`
	Length       int64            `json:"length"`
	Weight       int64            `json:"weight" binding:"required"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	IsPriceFixed bool             `json:"is_price_fixed"`
	OrderID      *uint            `json:"order_id,omitempty"`
}

// updateLotPayload carries partial lot update data
type updateLotPayload struct {
	Length       *int64           `json:"length,omitempty"`
	IsPriceFixed *bool            `json:"is_price_fixed,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	OrderID      *uint            `json:"order_id,omitempty"`
}

// ListLots handles GET /lots
func (h *LotHandler) ListLots(c *gin.Context) {
	orderID, ok := parseOptionalUintQuery(c, "order_id")
	if !ok {
		return
	}

	lots, err := h.inventoryService.ListLots(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve lots",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lots retrieved successfully",
		"data":    lots,
	})
}

// CreateLot handles POST /lots
func (h *LotHandler) CreateLot(c *gin.Context) {
	var payload createLotPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	req := inventory.CreateLotRequest{
		UPC:          payload.UPC,
		Length:       payload.Length,
		Weight:       payload.Weight,
		IsPriceFixed: payload.IsPriceFixed,
		OrderID:      payload.OrderID,
	}
	if payload.Price != nil {
		amount := money.ToMinorUnits(*payload.Price)
		req.Price = &amount
	}

	lot, err := h.inventoryService.CreateLot(&req)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrDuplicateUPC):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Lot with this UPC already exists",
			})
		case errors.Is(err, inventory.ErrInvalidWeight):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Weight must be positive",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create lot",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Lot created successfully",
		"data":    lot,
	})
}

// GetLot handles GET /lots/:id
func (h *LotHandler) GetLot(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	lot, err := h.inventoryService.GetLot(id)
	if err != nil {
		if errors.Is(err, inventory.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve lot",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot retrieved successfully",
		"data":    lot,
	})
}

// UpdateLot handles PUT /lots/:id
func (h *LotHandler) UpdateLot(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload updateLotPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	req := inventory.UpdateLotRequest{
		Length:       payload.Length,
		IsPriceFixed: payload.IsPriceFixed,
		OrderID:      payload.OrderID,
	}
	if payload.Price != nil {
		amount := money.ToMinorUnits(*payload.Price)
		req.Price = &amount
	}

	lot, err := h.inventoryService.UpdateLot(id, &req)
	if err != nil {
		if errors.Is(err, inventory.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update lot",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot updated successfully",
		"data":    lot,
	})
}

// DeleteLot handles DELETE /lots/:id
func (h *LotHandler) DeleteLot(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteLot(id); err != nil {
		if errors.Is(err, inventory.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete lot",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot deleted successfully",
	})
}

// PinLotPrice handles PUT /lots/:id/price, fixing the lot's price so the
// allocation engine leaves it untouched
func (h *LotHandler) PinLotPrice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var payload struct {
		Price decimal.Decimal `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Price required",
		})
		return
	}

	lot, err := h.inventoryService.PinLotPrice(id, money.ToMinorUnits(payload.Price))
	if err != nil {
		if errors.Is(err, inventory.ErrLotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lot not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to pin lot price",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot price pinned successfully",
		"data":    lot,
	})
}
