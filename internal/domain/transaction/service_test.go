package transaction

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/order"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&order.Order{}, &Transaction{}))

	return NewService(db, &config.Config{}), db
}

func seedOrder(t *testing.T, db *gorm.DB) *order.Order {
	t.Helper()
	ord := &order.Order{OrderType: order.OrderTypePurchase, PlacedAt: time.Now()}
	require.NoError(t, db.Create(ord).Error)
	return ord
}

func loadOrder(t *testing.T, db *gorm.DB, id uint) *order.Order {
	t.Helper()
	var ord order.Order
	require.NoError(t, db.First(&ord, id).Error)
	return &ord
}

func TestCreate_RefreshesOrderTotal(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db)

	_, err := svc.Create(&CreateTransactionRequest{
		Amount:  -250000,
		Type:    TypeCash,
		Date:    time.Now(),
		OrderID: &ord.ID,
	})
	require.NoError(t, err)

	_, err = svc.Create(&CreateTransactionRequest{
		Amount:  -100000,
		Type:    TypeDirectDebit,
		Date:    time.Now(),
		OrderID: &ord.ID,
	})
	require.NoError(t, err)

	updated := loadOrder(t, db, ord.ID)
	assert.Equal(t, int64(-350000), updated.Total)
	assert.True(t, updated.NeedsRecalculation)
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(&CreateTransactionRequest{
		Amount: 100,
		Type:   "bitcoin",
		Date:   time.Now(),
	})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCreate_UnknownOrderRollsBack(t *testing.T) {
	svc, db := setupService(t)

	missing := uint(999)
	_, err := svc.Create(&CreateTransactionRequest{
		Amount:  100,
		Type:    TypeCash,
		Date:    time.Now(),
		OrderID: &missing,
	})
	require.ErrorIs(t, err, order.ErrOrderNotFound)

	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBulkCreate(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db)

	txns, err := svc.BulkCreate([]CreateTransactionRequest{
		{Amount: -10000, Type: TypeCash, Date: time.Now(), OrderID: &ord.ID},
		{Amount: -20000, Type: TypeFasterPayment, Date: time.Now(), OrderID: &ord.ID},
		{Amount: 5000, Type: TypeDeposit, Date: time.Now()},
	})
	require.NoError(t, err)
	assert.Len(t, txns, 3)

	updated := loadOrder(t, db, ord.ID)
	assert.Equal(t, int64(-30000), updated.Total)
	assert.True(t, updated.NeedsRecalculation)
}

func TestBulkCreate_InvalidTypeCreatesNothing(t *testing.T) {
	svc, db := setupService(t)

	_, err := svc.BulkCreate([]CreateTransactionRequest{
		{Amount: -10000, Type: TypeCash, Date: time.Now()},
		{Amount: -20000, Type: "iou", Date: time.Now()},
	})
	require.ErrorIs(t, err, ErrInvalidType)

	var count int64
	require.NoError(t, db.Model(&Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestList_DefaultsToLastThirtyDays(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(&CreateTransactionRequest{
		Amount: 100, Type: TypeCash, Date: time.Now().AddDate(0, 0, -40),
	})
	require.NoError(t, err)
	recent, err := svc.Create(&CreateTransactionRequest{
		Amount: 200, Type: TypeCash, Date: time.Now().AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	txns, err := svc.List(ListTransactionsFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, recent.ID, txns[0].ID)
}

func TestList_ExplicitWindow(t *testing.T) {
	svc, _ := setupService(t)

	old, err := svc.Create(&CreateTransactionRequest{
		Amount: 100, Type: TypeCash, Date: time.Now().AddDate(0, 0, -40),
	})
	require.NoError(t, err)

	from := time.Now().AddDate(0, 0, -60)
	txns, err := svc.List(ListTransactionsFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, old.ID, txns[0].ID)
}

func TestUpdate_MovingBetweenOrdersRefreshesBoth(t *testing.T) {
	svc, db := setupService(t)
	first := seedOrder(t, db)
	second := seedOrder(t, db)

	txn, err := svc.Create(&CreateTransactionRequest{
		Amount:  -50000,
		Type:    TypeCash,
		Date:    time.Now(),
		OrderID: &first.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-50000), loadOrder(t, db, first.ID).Total)

	_, err = svc.Update(txn.ID, &UpdateTransactionRequest{OrderID: &second.ID})
	require.NoError(t, err)

	assert.Zero(t, loadOrder(t, db, first.ID).Total)
	assert.Equal(t, int64(-50000), loadOrder(t, db, second.ID).Total)
	assert.True(t, loadOrder(t, db, second.ID).NeedsRecalculation)
}

func TestDelete_RefreshesOrderTotal(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db)

	txn, err := svc.Create(&CreateTransactionRequest{
		Amount:  -50000,
		Type:    TypeCash,
		Date:    time.Now(),
		OrderID: &ord.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(txn.ID))

	updated := loadOrder(t, db, ord.ID)
	assert.Zero(t, updated.Total)
	assert.True(t, updated.NeedsRecalculation)

	_, err = svc.Get(txn.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestAttachAndDetach(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db)

	txn, err := svc.Create(&CreateTransactionRequest{
		Amount: -75000,
		Type:   TypeCardPayment,
		Date:   time.Now(),
	})
	require.NoError(t, err)

	attached, err := svc.AttachToOrder(txn.ID, ord.ID)
	require.NoError(t, err)
	require.NotNil(t, attached.OrderID)
	assert.Equal(t, ord.ID, *attached.OrderID)
	assert.Equal(t, int64(-75000), loadOrder(t, db, ord.ID).Total)

	detached, err := svc.DetachFromOrder(txn.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.OrderID)
	assert.Zero(t, loadOrder(t, db, ord.ID).Total)
}

func TestAttachToOrder_UnknownOrder(t *testing.T) {
	svc, _ := setupService(t)

	txn, err := svc.Create(&CreateTransactionRequest{
		Amount: 100, Type: TypeCash, Date: time.Now(),
	})
	require.NoError(t, err)

	_, err = svc.AttachToOrder(txn.ID, 999)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
