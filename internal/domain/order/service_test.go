package order_test

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*order.Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&order.Order{}, &inventory.Lot{},
		&inventory.Movement{}, &transaction.Transaction{}))

	return order.NewService(db, &config.Config{}), db
}

func TestPlaceOrder(t *testing.T) {
	svc, _ := setupService(t)

	placed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ord, err := svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: order.OrderTypeSale,
		PlacedAt:  placed,
	})
	require.NoError(t, err)

	assert.True(t, ord.IsSale())
	assert.Zero(t, ord.Total)
	assert.False(t, ord.NeedsRecalculation)
	assert.True(t, placed.Equal(ord.PlacedAt))
}

func TestPlaceOrder_RejectsUnknownType(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: "Refund",
		PlacedAt:  time.Now(),
	})
	assert.ErrorIs(t, err, order.ErrInvalidOrderType)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.GetOrder(42)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestListOrders_FilterByType(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: order.OrderTypeSale, PlacedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: order.OrderTypePurchase, PlacedAt: time.Now(),
	})
	require.NoError(t, err)

	saleType := order.OrderTypeSale
	orders, err := svc.ListOrders(order.ListOrdersFilter{OrderType: &saleType})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.OrderTypeSale, orders[0].OrderType)
}

func TestUpdateOrder_TypeChangeFlagsRecalculation(t *testing.T) {
	svc, _ := setupService(t)

	ord, err := svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: order.OrderTypeSale, PlacedAt: time.Now(),
	})
	require.NoError(t, err)

	purchase := order.OrderTypePurchase
	updated, err := svc.UpdateOrder(ord.ID, &order.UpdateOrderRequest{OrderType: &purchase})
	require.NoError(t, err)
	assert.Equal(t, order.OrderTypePurchase, updated.OrderType)
	assert.True(t, updated.NeedsRecalculation)

	// Re-asserting the same type is not a semantic change.
	require.NoError(t, svc.ClearDirty(ord.ID))
	updated, err = svc.UpdateOrder(ord.ID, &order.UpdateOrderRequest{OrderType: &purchase})
	require.NoError(t, err)
	assert.False(t, updated.NeedsRecalculation)
}

func TestDeleteOrder_DetachesReferences(t *testing.T) {
	svc, db := setupService(t)

	ord, err := svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: order.OrderTypePurchase, PlacedAt: time.Now(),
	})
	require.NoError(t, err)

	lot := &inventory.Lot{UPC: "L-1", Weight: 100, WeightInStock: 100, OrderID: &ord.ID}
	require.NoError(t, db.Create(lot).Error)
	movement := &inventory.Movement{ParentLotID: lot.ID, OrderID: ord.ID, Weight: 50}
	require.NoError(t, db.Create(movement).Error)
	txn := &transaction.Transaction{
		Amount: -1000, Type: transaction.TypeCash, Date: time.Now(), OrderID: &ord.ID,
	}
	require.NoError(t, db.Create(txn).Error)

	require.NoError(t, svc.DeleteOrder(ord.ID))

	_, err = svc.GetOrder(ord.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	// Lots and transactions survive without their order reference; the
	// movements go with the order. Consumed stock stays consumed.
	var keptLot inventory.Lot
	require.NoError(t, db.First(&keptLot, lot.ID).Error)
	assert.Nil(t, keptLot.OrderID)
	assert.Equal(t, int64(100), keptLot.WeightInStock)

	var keptTxn transaction.Transaction
	require.NoError(t, db.First(&keptTxn, txn.ID).Error)
	assert.Nil(t, keptTxn.OrderID)

	var movementCount int64
	require.NoError(t, db.Model(&inventory.Movement{}).Count(&movementCount).Error)
	assert.Zero(t, movementCount)
}

func TestMarkAndClearDirty(t *testing.T) {
	svc, _ := setupService(t)

	ord, err := svc.PlaceOrder(&order.PlaceOrderRequest{
		OrderType: order.OrderTypeSale, PlacedAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkDirty(ord.ID))
	loaded, err := svc.GetOrder(ord.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsClean())

	require.NoError(t, svc.ClearDirty(ord.ID))
	loaded, err = svc.GetOrder(ord.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsClean())

	assert.ErrorIs(t, svc.MarkDirty(999), order.ErrOrderNotFound)
}
