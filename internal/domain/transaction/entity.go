// internal/domain/transaction/entity.go
package transaction

import (
	"time"

	"gorm.io/gorm"
)

// TransactionType represents the payment method of a transaction
type TransactionType string

const (
	TypeCash           TransactionType = "Cash"
	TypeDirectDebit    TransactionType = "Direct Debit"
	TypeFasterPayment  TransactionType = "Faster payment"
	TypeCardPayment    TransactionType = "Card payment"
	TypeDeposit        TransactionType = "Deposit"
	TypeAccountBilling TransactionType = "business-account-billing"
)

// Valid reports whether the type is one of the known payment methods
func (t TransactionType) Valid() bool {
	switch t {
	case TypeCash, TypeDirectDebit, TypeFasterPayment, TypeCardPayment,
		TypeDeposit, TypeAccountBilling:
		return true
	}
	return false
}

// Transaction represents a payment or receipt. Amount is signed: negative is
// money out, positive is money in. A transaction optionally references an
// order; the sum of a given order's transaction amounts is that order's cash
// total.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Amount    int64           `gorm:"not null" json:"amount"` // In minor units, signed
	Type      TransactionType `gorm:"not null;size:50" json:"type"`
	Notes     string          `gorm:"type:text" json:"notes"`
	Date      time.Time       `gorm:"not null;index" json:"date"`
	AccountID *uint           `gorm:"index" json:"account_id"`
	OrderID   *uint           `gorm:"index" json:"order_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName overrides
func (Transaction) TableName() string { return "transactions" }

// IsMoneyOut reports whether the transaction is an outgoing payment
func (t *Transaction) IsMoneyOut() bool {
	return t.Amount < 0
}
