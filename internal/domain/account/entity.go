// internal/domain/account/entity.go
package account

import (
	"time"

	"gorm.io/gorm"
)

// Account represents a customer or supplier
type Account struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	FullName     string         `gorm:"not null;size:255" json:"full_name"`
	Instagram    string         `gorm:"size:100" json:"instagram"`
	EmailAddress string         `gorm:"size:255" json:"email_address"`
	PhoneNumber  string         `gorm:"size:50" json:"phone_number"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Tags []AccountTag `gorm:"many2many:accounts_to_tags" json:"tags,omitempty"`
}

// AccountTag labels accounts for grouping and search
type AccountTag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"uniqueIndex;not null;size:100" json:"title"`
}

// TableName overrides
func (Account) TableName() string    { return "accounts" }
func (AccountTag) TableName() string { return "account_tags" }
