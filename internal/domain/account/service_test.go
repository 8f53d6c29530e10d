package account

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Account{}, &AccountTag{},
		&order.Order{}, &transaction.Transaction{}))

	return NewService(db, &config.Config{}), db
}

func TestCreateAndGetAccount(t *testing.T) {
	svc, _ := setupService(t)

	created, err := svc.CreateAccount(&UpsertAccountRequest{
		FullName:  "Ada Lovelace",
		Instagram: "@ada",
	})
	require.NoError(t, err)

	loaded, err := svc.GetAccount(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", loaded.FullName)
	assert.Equal(t, "@ada", loaded.Instagram)
}

func TestGetAccount_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.GetAccount(17)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateAccountTags_ReplacesSet(t *testing.T) {
	svc, _ := setupService(t)

	acc, err := svc.CreateAccount(&UpsertAccountRequest{FullName: "Supplier"})
	require.NoError(t, err)

	wholesale, err := svc.CreateTag("wholesale")
	require.NoError(t, err)
	vip, err := svc.CreateTag("vip")
	require.NoError(t, err)

	tagged, err := svc.UpdateAccountTags(acc.ID, []uint{wholesale.ID, vip.ID})
	require.NoError(t, err)
	assert.Len(t, tagged.Tags, 2)

	tagged, err = svc.UpdateAccountTags(acc.ID, []uint{vip.ID})
	require.NoError(t, err)
	require.Len(t, tagged.Tags, 1)
	assert.Equal(t, "vip", tagged.Tags[0].Title)

	_, err = svc.UpdateAccountTags(acc.ID, []uint{999})
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestCreateTag_Duplicate(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateTag("regular")
	require.NoError(t, err)

	_, err = svc.CreateTag("regular")
	assert.ErrorIs(t, err, ErrDuplicateTag)
}

func TestDeleteAccount_DetachesOrdersAndTransactions(t *testing.T) {
	svc, db := setupService(t)

	acc, err := svc.CreateAccount(&UpsertAccountRequest{FullName: "Departing"})
	require.NoError(t, err)

	ord := &order.Order{OrderType: order.OrderTypeSale, PlacedAt: time.Now(), AccountID: &acc.ID}
	require.NoError(t, db.Create(ord).Error)
	txn := &transaction.Transaction{
		Amount: 5000, Type: transaction.TypeCash, Date: time.Now(), AccountID: &acc.ID,
	}
	require.NoError(t, db.Create(txn).Error)

	require.NoError(t, svc.DeleteAccount(acc.ID))

	_, err = svc.GetAccount(acc.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	var keptOrder order.Order
	require.NoError(t, db.First(&keptOrder, ord.ID).Error)
	assert.Nil(t, keptOrder.AccountID)

	var keptTxn transaction.Transaction
	require.NoError(t, db.First(&keptTxn, txn.ID).Error)
	assert.Nil(t, keptTxn.AccountID)
}

func TestDeleteTag_RemovesLinks(t *testing.T) {
	svc, db := setupService(t)

	acc, err := svc.CreateAccount(&UpsertAccountRequest{FullName: "Tagged"})
	require.NoError(t, err)
	tag, err := svc.CreateTag("seasonal")
	require.NoError(t, err)
	_, err = svc.UpdateAccountTags(acc.ID, []uint{tag.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTag(tag.ID))

	var linkCount int64
	require.NoError(t, db.Table("accounts_to_tags").Count(&linkCount).Error)
	assert.Zero(t, linkCount)

	loaded, err := svc.GetAccount(acc.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Tags)
}
