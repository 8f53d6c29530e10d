package inventory

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&order.Order{}, &Lot{}, &Movement{}))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Locking.TTL = 2 * time.Second
	cfg.Locking.RetryInterval = 10 * time.Millisecond
	cfg.Locking.RetryCount = 50

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewService(db, cfg, locker.New(rdb, cfg), logger), db
}

func seedOrder(t *testing.T, db *gorm.DB, orderType order.OrderType) *order.Order {
	t.Helper()
	ord := &order.Order{OrderType: orderType, PlacedAt: time.Now()}
	require.NoError(t, db.Create(ord).Error)
	return ord
}

func orderIsDirty(t *testing.T, db *gorm.DB, id uint) bool {
	t.Helper()
	var ord order.Order
	require.NoError(t, db.First(&ord, id).Error)
	return ord.NeedsRecalculation
}

func TestCreateLot(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypePurchase)

	price := int64(12500)
	lot, err := svc.CreateLot(&CreateLotRequest{
		UPC:     "LOT-001",
		Length:  120,
		Weight:  1000,
		Price:   &price,
		OrderID: &ord.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, "LOT-001", lot.UPC)
	assert.Equal(t, int64(1000), lot.Weight)
	assert.Equal(t, int64(1000), lot.WeightInStock)
	assert.Equal(t, int64(12500), lot.Price)
	assert.False(t, lot.IsPriceFixed)
	assert.True(t, orderIsDirty(t, db, ord.ID))
}

func TestCreateLot_GeneratesUPCWhenMissing(t *testing.T) {
	svc, _ := setupService(t)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 500})
	require.NoError(t, err)
	assert.NotEmpty(t, lot.UPC)
}

func TestCreateLot_DuplicateUPC(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateLot(&CreateLotRequest{UPC: "DUP", Weight: 100})
	require.NoError(t, err)

	_, err = svc.CreateLot(&CreateLotRequest{UPC: "DUP", Weight: 200})
	assert.ErrorIs(t, err, ErrDuplicateUPC)
}

func TestCreateLot_RejectsNonPositiveWeight(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateLot(&CreateLotRequest{Weight: 0})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = svc.CreateLot(&CreateLotRequest{Weight: -10})
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestPinLotPrice(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypePurchase)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 300, OrderID: &ord.ID})
	require.NoError(t, err)

	pinned, err := svc.PinLotPrice(lot.ID, 75000)
	require.NoError(t, err)
	assert.Equal(t, int64(75000), pinned.Price)
	assert.True(t, pinned.IsPriceFixed)
	assert.True(t, orderIsDirty(t, db, ord.ID))
}

func TestUpdateLot_ReassignmentFlagsBothOrders(t *testing.T) {
	svc, db := setupService(t)
	oldOrd := seedOrder(t, db, order.OrderTypePurchase)
	newOrd := seedOrder(t, db, order.OrderTypePurchase)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 100, OrderID: &oldOrd.ID})
	require.NoError(t, err)

	require.NoError(t, db.Model(&order.Order{}).Where("1 = 1").
		Update("needs_recalculation", false).Error)

	_, err = svc.UpdateLot(lot.ID, &UpdateLotRequest{OrderID: &newOrd.ID})
	require.NoError(t, err)

	assert.True(t, orderIsDirty(t, db, oldOrd.ID))
	assert.True(t, orderIsDirty(t, db, newOrd.ID))
}

func TestRecordMovement_SaleStoresPositivePrice(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID:    lot.ID,
		OrderID:        ord.ID,
		Weight:         400,
		RequestedPrice: -50000,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), movement.Price)
	assert.True(t, orderIsDirty(t, db, ord.ID))

	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), updated.WeightInStock)
}

func TestRecordMovement_PurchaseStoresNegativePrice(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypePurchase)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID:    lot.ID,
		OrderID:        ord.ID,
		Weight:         100,
		RequestedPrice: 30000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-30000), movement.Price)
}

func TestRecordMovement_InsufficientStockLeavesStateUntouched(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 500})
	require.NoError(t, err)

	_, err = svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      600,
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(600), stockErr.Requested)
	assert.Equal(t, int64(500), stockErr.Available)
	assert.Equal(t, int64(100), stockErr.Shortfall())

	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.WeightInStock)

	var count int64
	require.NoError(t, db.Model(&Movement{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.False(t, orderIsDirty(t, db, ord.ID))
}

func TestRecordMovement_UnknownOrder(t *testing.T) {
	svc, _ := setupService(t)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 500})
	require.NoError(t, err)

	_, err = svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     999,
		Weight:      100,
	})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRecordMovement_ConcurrentOverdrawPrevented(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	// Two concurrent movements each want more than half the stock; the
	// per-lot lock must serialize them so only one lands.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordMovement(context.Background(), &RecordMovementRequest{
				ParentLotID: lot.ID,
				OrderID:     ord.ID,
				Weight:      600,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), updated.WeightInStock)

	var count int64
	require.NoError(t, db.Model(&Movement{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEditMovement_RederivesSign(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID:    lot.ID,
		OrderID:        ord.ID,
		Weight:         200,
		RequestedPrice: 10000,
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&order.Order{}).Where("id = ?", ord.ID).
		Update("needs_recalculation", false).Error)

	edited, err := svc.EditMovement(context.Background(), movement.ID, 250, -20000)
	require.NoError(t, err)
	assert.Equal(t, int64(250), edited.Weight)
	assert.Equal(t, int64(20000), edited.Price)
	assert.True(t, orderIsDirty(t, db, ord.ID))

	// The extra 50 grams came out of the lot.
	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(750), updated.WeightInStock)
}

func TestEditMovement_RejectsOverdraw(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      600,
	})
	require.NoError(t, err)

	// Only 400 grams remain; growing the movement past the lot must fail.
	_, err = svc.EditMovement(context.Background(), movement.ID, 5000, 0)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(4400), stockErr.Requested)
	assert.Equal(t, int64(400), stockErr.Available)

	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), updated.WeightInStock)

	unchanged, err := svc.GetMovement(movement.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), unchanged.Weight)
}

func TestEditMovement_ShrinkReturnsStock(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      600,
	})
	require.NoError(t, err)

	_, err = svc.EditMovement(context.Background(), movement.ID, 100, 0)
	require.NoError(t, err)

	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), updated.WeightInStock)
}

func TestDeleteMovement_DoesNotRestock(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      300,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMovement(movement.ID))

	updated, err := svc.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), updated.WeightInStock)

	_, err = svc.GetMovement(movement.ID)
	assert.ErrorIs(t, err, ErrMovementNotFound)
}

func TestDeleteLot_RemovesMovements(t *testing.T) {
	svc, db := setupService(t)
	ord := seedOrder(t, db, order.OrderTypeSale)

	lot, err := svc.CreateLot(&CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	movement, err := svc.RecordMovement(context.Background(), &RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      100,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLot(lot.ID))

	_, err = svc.GetLot(lot.ID)
	assert.ErrorIs(t, err, ErrLotNotFound)
	_, err = svc.GetMovement(movement.ID)
	assert.ErrorIs(t, err, ErrMovementNotFound)

	var count int64
	require.NoError(t, db.Model(&Movement{}).Count(&count).Error)
	assert.Zero(t, count)
}
