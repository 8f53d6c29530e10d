// internal/domain/account/service.go
package account

import (
	"errors"
	"fmt"

	"github.com/your-org/trading-backend/internal/config"
	"gorm.io/gorm"
)

var (
	// ErrAccountNotFound is returned when no account exists for the given id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrTagNotFound is returned when no tag exists for the given id.
	ErrTagNotFound = errors.New("account tag not found")

	// ErrDuplicateTag is returned when a tag title is already in use.
	ErrDuplicateTag = errors.New("account tag with this title already exists")
)

// Service handles account and tag business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new account service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// UpsertAccountRequest represents account creation/update data
type UpsertAccountRequest struct {
	FullName     string `json:"full_name" binding:"required"`
	Instagram    string `json:"instagram"`
	EmailAddress string `json:"email_address" binding:"omitempty,email"`
	PhoneNumber  string `json:"phone_number"`
}

// CreateAccount creates a new account
func (s *Service) CreateAccount(req *UpsertAccountRequest) (*Account, error) {
	account := &Account{
		FullName:     req.FullName,
		Instagram:    req.Instagram,
		EmailAddress: req.EmailAddress,
		PhoneNumber:  req.PhoneNumber,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetAccount retrieves an account with its tags
func (s *Service) GetAccount(id uint) (*Account, error) {
	var account Account
	if err := s.db.Preload("Tags").First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}
	return &account, nil
}

// ListAccounts retrieves all accounts with their tags
func (s *Service) ListAccounts() ([]Account, error) {
	var accounts []Account
	if err := s.db.Preload("Tags").Order("full_name").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccount updates an account's attributes
func (s *Service) UpdateAccount(id uint, req *UpsertAccountRequest) (*Account, error) {
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	account.FullName = req.FullName
	account.Instagram = req.Instagram
	account.EmailAddress = req.EmailAddress
	account.PhoneNumber = req.PhoneNumber

	if err := s.db.Save(account).Error; err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes an account; orders and transactions keep their rows
// with the account reference cleared
func (s *Service) DeleteAccount(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var account Account
		if err := tx.First(&account, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("failed to retrieve account: %w", err)
		}

		if err := tx.Table("orders").Where("account_id = ?", id).
			Update("account_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach orders: %w", err)
		}
		if err := tx.Table("transactions").Where("account_id = ?", id).
			Update("account_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach transactions: %w", err)
		}

		if err := tx.Model(&account).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to clear account tags: %w", err)
		}
		if err := tx.Delete(&account).Error; err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
}

// UpdateAccountTags replaces an account's tag set
func (s *Service) UpdateAccountTags(id uint, tagIDs []uint) (*Account, error) {
	account, err := s.GetAccount(id)
	if err != nil {
		return nil, err
	}

	var tags []AccountTag
	if len(tagIDs) > 0 {
		if err := s.db.Find(&tags, tagIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to retrieve tags: %w", err)
		}
		if len(tags) != len(tagIDs) {
			return nil, ErrTagNotFound
		}
	}

	if err := s.db.Model(account).Association("Tags").Replace(tags); err != nil {
		return nil, fmt.Errorf("failed to update account tags: %w", err)
	}

	return s.GetAccount(id)
}

// CreateTag creates a new account tag
func (s *Service) CreateTag(title string) (*AccountTag, error) {
	var existing AccountTag
	if err := s.db.Where("title = ?", title).First(&existing).Error; err == nil {
		return nil, ErrDuplicateTag
	}

	tag := &AccountTag{Title: title}
	if err := s.db.Create(tag).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

// ListTags retrieves all account tags
func (s *Service) ListTags() ([]AccountTag, error) {
	var tags []AccountTag
	if err := s.db.Order("title").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve tags: %w", err)
	}
	return tags, nil
}

// DeleteTag removes a tag and its account links
func (s *Service) DeleteTag(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var tag AccountTag
		if err := tx.First(&tag, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTagNotFound
			}
			return fmt.Errorf("failed to retrieve tag: %w", err)
		}

		if err := tx.Exec("DELETE FROM accounts_to_tags WHERE account_tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to unlink tag: %w", err)
		}
		if err := tx.Delete(&tag).Error; err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return nil
	})
}
