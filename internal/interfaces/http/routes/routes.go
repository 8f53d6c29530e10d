// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/trading-backend/internal/config"
	"github.com/your-org/trading-backend/internal/interfaces/http/handlers"
	"github.com/your-org/trading-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires every route group under the given router group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupAuthRoutes(rg, db, redisClient, cfg)
	SetupAccountRoutes(rg, db, redisClient, cfg)
	SetupOrderRoutes(rg, db, redisClient, cfg)
	SetupInventoryRoutes(rg, db, redisClient, cfg)
	SetupTransactionRoutes(rg, db, redisClient, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}
}

// SetupAccountRoutes sets up trading account and tag routes
func SetupAccountRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	accountHandler := handlers.NewAccountHandler(db, cfg)

	accounts := rg.Group("/accounts")
	accounts.Use(middleware.AuthMiddleware(cfg))
	{
		accounts.GET("", accountHandler.ListAccounts)
		accounts.POST("", accountHandler.CreateAccount)
		accounts.GET("/:id", accountHandler.GetAccount)
		accounts.PUT("/:id", accountHandler.UpdateAccount)
		accounts.DELETE("/:id", accountHandler.DeleteAccount)
		accounts.PUT("/:id/tags", accountHandler.UpdateAccountTags)
	}

	tags := rg.Group("/account-tags")
	tags.Use(middleware.AuthMiddleware(cfg))
	{
		tags.GET("", accountHandler.ListTags)
		tags.POST("", accountHandler.CreateTag)
		tags.DELETE("/:id", accountHandler.DeleteTag)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)
	statementHandler := handlers.NewStatementHandler(db, redisClient, cfg)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.ListOrders)
		orders.POST("", orderHandler.PlaceOrder)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id", orderHandler.UpdateOrder)
		orders.DELETE("/:id", orderHandler.DeleteOrder)
		orders.POST("/:id/calculate", orderHandler.Calculate)
		orders.GET("/:id/statement", statementHandler.GenerateStatement)
	}
}

// SetupInventoryRoutes sets up lot and movement routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	lotHandler := handlers.NewLotHandler(db, redisClient, cfg)
	movementHandler := handlers.NewMovementHandler(db, redisClient, cfg)

	lots := rg.Group("/lots")
	lots.Use(middleware.AuthMiddleware(cfg))
	{
		lots.GET("", lotHandler.ListLots)
		lots.POST("", lotHandler.CreateLot)
		lots.GET("/:id", lotHandler.GetLot)
		lots.PUT("/:id", lotHandler.UpdateLot)
		lots.DELETE("/:id", lotHandler.DeleteLot)
		lots.PUT("/:id/price", lotHandler.PinLotPrice)
	}

	movements := rg.Group("/movements")
	movements.Use(middleware.AuthMiddleware(cfg))
	{
		movements.GET("", movementHandler.ListMovements)
		movements.POST("", movementHandler.RecordMovement)
		movements.GET("/:id", movementHandler.GetMovement)
		movements.PUT("/:id", movementHandler.EditMovement)
		movements.DELETE("/:id", movementHandler.DeleteMovement)
	}
}

// SetupTransactionRoutes sets up cash ledger routes
func SetupTransactionRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	transactionHandler := handlers.NewTransactionHandler(db, cfg)

	transactions := rg.Group("/transactions")
	transactions.Use(middleware.AuthMiddleware(cfg))
	{
		transactions.GET("", transactionHandler.List)
		transactions.POST("", transactionHandler.Create)
		transactions.POST("/bulk-create", transactionHandler.BulkCreate)
		transactions.GET("/:id", transactionHandler.Get)
		transactions.PUT("/:id", transactionHandler.Update)
		transactions.DELETE("/:id", transactionHandler.Delete)
		transactions.PUT("/:id/order", transactionHandler.AttachToOrder)
		transactions.DELETE("/:id/order", transactionHandler.DetachFromOrder)
	}
}
