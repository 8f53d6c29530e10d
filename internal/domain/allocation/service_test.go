package allocation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"github.com/your-org/trading-backend/internal/pkg/locker"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	alloc     *Service
	inventory *inventory.Service
	ledger    *transaction.Service
}

func setup(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&order.Order{}, &inventory.Lot{},
		&inventory.Movement{}, &transaction.Transaction{}))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Locking.TTL = 2 * time.Second
	cfg.Locking.RetryInterval = 10 * time.Millisecond
	cfg.Locking.RetryCount = 50
	lk := locker.New(rdb, cfg)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	inv := inventory.NewService(db, cfg, lk, logger)
	ledger := transaction.NewService(db, cfg)

	return &fixture{
		db:        db,
		alloc:     NewService(db, cfg, lk, logger, inv, ledger),
		inventory: inv,
		ledger:    ledger,
	}
}

func (f *fixture) seedOrder(t *testing.T, orderType order.OrderType) *order.Order {
	t.Helper()
	ord := &order.Order{OrderType: orderType, PlacedAt: time.Now()}
	require.NoError(t, f.db.Create(ord).Error)
	return ord
}

func (f *fixture) seedCash(t *testing.T, orderID uint, amount int64) {
	t.Helper()
	_, err := f.ledger.Create(&transaction.CreateTransactionRequest{
		Amount:  amount,
		Type:    transaction.TypeCash,
		Date:    time.Now(),
		OrderID: &orderID,
	})
	require.NoError(t, err)
}

func (f *fixture) order(t *testing.T, id uint) *order.Order {
	t.Helper()
	var ord order.Order
	require.NoError(t, f.db.First(&ord, id).Error)
	return &ord
}

func (f *fixture) lot(t *testing.T, id uint) *inventory.Lot {
	t.Helper()
	lot, err := f.inventory.GetLot(id)
	require.NoError(t, err)
	return lot
}

func TestRecalculate_SingleLotAbsorbsCashTotal(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypePurchase)

	lot, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:  1000,
		OrderID: &ord.ID,
	})
	require.NoError(t, err)

	f.seedCash(t, ord.ID, -500000)
	require.True(t, f.order(t, ord.ID).NeedsRecalculation)

	result, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(-500000), result.CashTotal)
	assert.Equal(t, int64(1000), result.VariableWeight)
	assert.InDelta(t, 500.0, result.UnitPrice, 1e-9)
	assert.Equal(t, 1, result.ItemsRepriced)

	assert.Equal(t, int64(500000), f.lot(t, lot.ID).Price)
	assert.False(t, f.order(t, ord.ID).NeedsRecalculation)
}

func TestRecalculate_FixedLotOffsetsCash(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypePurchase)

	pinnedPrice := int64(100000)
	pinned, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:       200,
		Price:        &pinnedPrice,
		IsPriceFixed: true,
		OrderID:      &ord.ID,
	})
	require.NoError(t, err)

	variable, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:  1000,
		OrderID: &ord.ID,
	})
	require.NoError(t, err)

	f.seedCash(t, ord.ID, -500000)

	result, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(100000), result.FixedCost)
	assert.Equal(t, int64(400000), f.lot(t, variable.ID).Price)
	// The pinned lot is never touched by an allocation run.
	assert.Equal(t, int64(100000), f.lot(t, pinned.ID).Price)
	assert.False(t, f.order(t, ord.ID).NeedsRecalculation)
}

func TestRecalculate_ZeroVariableWeightClearsFlag(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypePurchase)

	pinnedPrice := int64(50000)
	pinned, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:       300,
		Price:        &pinnedPrice,
		IsPriceFixed: true,
		OrderID:      &ord.ID,
	})
	require.NoError(t, err)

	f.seedCash(t, ord.ID, -80000)

	result, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)

	assert.True(t, result.ZeroVariableWeight)
	assert.Zero(t, result.ItemsRepriced)
	assert.Equal(t, int64(50000), f.lot(t, pinned.ID).Price)
	assert.False(t, f.order(t, ord.ID).NeedsRecalculation)
}

func TestRecalculate_IsIdempotent(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypePurchase)

	lot, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:  1000,
		OrderID: &ord.ID,
	})
	require.NoError(t, err)
	f.seedCash(t, ord.ID, -500000)

	first, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)
	priceAfterFirst := f.lot(t, lot.ID).Price

	second, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)

	assert.Equal(t, priceAfterFirst, f.lot(t, lot.ID).Price)
	assert.Equal(t, first.UnitPrice, second.UnitPrice)
	assert.False(t, f.order(t, ord.ID).NeedsRecalculation)
}

func TestRecalculate_SaleSpreadsAcrossMovements(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypeSale)

	lot, err := f.inventory.CreateLot(&inventory.CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	m1, err := f.inventory.RecordMovement(context.Background(), &inventory.RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      500,
	})
	require.NoError(t, err)
	m2, err := f.inventory.RecordMovement(context.Background(), &inventory.RecordMovementRequest{
		ParentLotID: lot.ID,
		OrderID:     ord.ID,
		Weight:      300,
	})
	require.NoError(t, err)

	f.seedCash(t, ord.ID, 40000)

	result, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ItemsRepriced)
	assert.InDelta(t, 50.0, result.UnitPrice, 1e-9)

	first, err := f.inventory.GetMovement(m1.ID)
	require.NoError(t, err)
	second, err := f.inventory.GetMovement(m2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), first.Price)
	assert.Equal(t, int64(15000), second.Price)
}

func TestRecalculate_MovementUnderPinnedLotStaysFixed(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypeSale)

	pinnedPrice := int64(1)
	pinnedLot, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:       500,
		Price:        &pinnedPrice,
		IsPriceFixed: true,
	})
	require.NoError(t, err)
	openLot, err := f.inventory.CreateLot(&inventory.CreateLotRequest{Weight: 1000})
	require.NoError(t, err)

	fixed, err := f.inventory.RecordMovement(context.Background(), &inventory.RecordMovementRequest{
		ParentLotID:    pinnedLot.ID,
		OrderID:        ord.ID,
		Weight:         200,
		RequestedPrice: 10000,
	})
	require.NoError(t, err)
	variable, err := f.inventory.RecordMovement(context.Background(), &inventory.RecordMovementRequest{
		ParentLotID: openLot.ID,
		OrderID:     ord.ID,
		Weight:      500,
	})
	require.NoError(t, err)

	f.seedCash(t, ord.ID, 40000)

	result, err := f.alloc.Recalculate(context.Background(), ord.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), result.FixedCost)
	assert.Equal(t, 1, result.ItemsRepriced)

	kept, err := f.inventory.GetMovement(fixed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), kept.Price)

	repriced, err := f.inventory.GetMovement(variable.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), repriced.Price)
}

func TestRecalculate_UnknownOrder(t *testing.T) {
	f := setup(t)

	_, err := f.alloc.Recalculate(context.Background(), 404)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestMutationsBumpOrderRevision(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypePurchase)
	require.Zero(t, f.order(t, ord.ID).Revision)

	f.seedCash(t, ord.ID, -100000)
	assert.Equal(t, uint(1), f.order(t, ord.ID).Revision)

	_, err := f.inventory.CreateLot(&inventory.CreateLotRequest{
		Weight:  500,
		OrderID: &ord.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), f.order(t, ord.ID).Revision)
}

func TestClearFlag_RefusesStaleSnapshot(t *testing.T) {
	f := setup(t)
	ord := f.seedOrder(t, order.OrderTypePurchase)
	f.seedCash(t, ord.ID, -100000)

	snapshot := f.order(t, ord.ID)

	// A transaction lands after the snapshot was taken; its amount was never
	// priced, so the order must stay flagged.
	f.seedCash(t, ord.ID, -50000)

	err := f.alloc.clearFlag(f.db, snapshot)
	assert.ErrorIs(t, err, ErrOrderChanged)
	assert.True(t, f.order(t, ord.ID).NeedsRecalculation)

	// At the current revision the clear goes through.
	require.NoError(t, f.alloc.clearFlag(f.db, f.order(t, ord.ID)))
	assert.False(t, f.order(t, ord.ID).NeedsRecalculation)
}
