// internal/interfaces/http/handlers/accounts.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/account"
	"gorm.io/gorm"
)

// AccountHandler handles trading account and tag endpoints
type AccountHandler struct {
	accountService *account.Service
	config         *config.Config
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(db *gorm.DB, cfg *config.Config) *AccountHandler {
	return &AccountHandler{
		accountService: account.NewService(db, cfg),
		config:         cfg,
	}
}

// ListAccounts handles GET /accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve accounts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Accounts retrieved successfully",
		"data":    accounts,
	})
}

// CreateAccount handles POST /accounts
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req account.UpsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	acc, err := h.accountService.CreateAccount(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create account",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"data":    acc,
	})
}

// GetAccount handles GET /accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccount(id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Account not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve account",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account retrieved successfully",
		"data":    acc,
	})
}

// UpdateAccount handles PUT /accounts/:id
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req account.UpsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	acc, err := h.accountService.UpdateAccount(id, &req)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Account not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update account",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account updated successfully",
		"data":    acc,
	})
}

// DeleteAccount handles DELETE /accounts/:id
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.accountService.DeleteAccount(id); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Account not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete account",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account deleted successfully",
	})
}

// UpdateAccountTags handles PUT /accounts/:id/tags
func (h *AccountHandler) UpdateAccountTags(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req struct {
		TagIDs []uint `json:"tag_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	acc, err := h.accountService.UpdateAccountTags(id, req.TagIDs)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Account not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update account tags",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Account tags updated successfully",
		"data":    acc,
	})
}

// ListTags handles GET /account-tags
func (h *AccountHandler) ListTags(c *gin.Context) {
	tags, err := h.accountService.ListTags()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve tags",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tags retrieved successfully",
		"data":    tags,
	})
}

// CreateTag handles POST /account-tags
func (h *AccountHandler) CreateTag(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Tag title required",
		})
		return
	}

	tag, err := h.accountService.CreateTag(req.Title)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateTag) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Tag with this title already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create tag",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tag created successfully",
		"data":    tag,
	})
}

// DeleteTag handles DELETE /account-tags/:id
func (h *AccountHandler) DeleteTag(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.accountService.DeleteTag(id); err != nil {
		if errors.Is(err, account.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Tag not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete tag",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tag deleted successfully",
	})
}
