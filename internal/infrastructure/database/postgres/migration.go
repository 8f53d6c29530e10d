// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/trading-backend/internal/domain/account"
	"github.com/your-org/trading-backend/internal/domain/inventory"
	"github.com/your-org/trading-backend/internal/domain/order"
	"github.com/your-org/trading-backend/internal/domain/transaction"
	"github.com/your-org/trading-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Operator accounts
		&user.User{},

		// Customers/suppliers and their tags
		&account.Account{},
		&account.AccountTag{},

		// Orders before the rows that reference them
		&order.Order{},

		// Inventory: lots, then the ledger against them
		&inventory.Lot{},
		&inventory.Movement{},

		// Financial ledger
		&transaction.Transaction{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",

		// Account indexes
		"CREATE INDEX IF NOT EXISTS idx_accounts_full_name ON accounts(full_name)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_account ON orders(account_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_placed_at ON orders(placed_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_needs_recalculation ON orders(needs_recalculation)",

		// Lot indexes
		"CREATE INDEX IF NOT EXISTS idx_lots_upc ON lots(upc)",
		"CREATE INDEX IF NOT EXISTS idx_lots_order ON lots(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_lots_weight_in_stock ON lots(weight_in_stock)",

		// Movement indexes
		"CREATE INDEX IF NOT EXISTS idx_movements_parent_lot ON movements(parent_lot_id)",
		"CREATE INDEX IF NOT EXISTS idx_movements_order ON movements(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_movements_created_at ON movements(created_at DESC)",

		// Transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_order ON transactions(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_order_date ON transactions(order_id, date DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedAdminUser creates the default operator account for development
func (m *Migration) seedAdminUser() error {
	var count int64
	if err := m.db.Model(&user.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("Admin#2024!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := user.User{
		Email:    "admin@localhost",
		Password: string(hashed),
		FullName: "Administrator",
		IsActive: true,
		IsAdmin:  true,
	}

	if err := m.db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("👤 Default admin user created (admin@localhost)")
	return nil
}

// GetTableInfo logs row counts per table in development
func (m *Migration) GetTableInfo() {
	tables := []string{"users", "accounts", "account_tags", "orders", "lots", "movements", "transactions"}

	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			log.Printf("Table %s: error counting rows: %v", table, err)
			continue
		}
		log.Printf("Table %s: %d rows", table, count)
	}
}
