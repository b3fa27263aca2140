package router

import (
	"database/sql"
	"time"

	"stockledger/internal/handlers"
	"stockledger/internal/messaging"
	"stockledger/internal/middleware"
	"stockledger/internal/repositories"
	"stockledger/internal/services"
	"stockledger/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Dependencies are the shared resources the routes are built from.
type Dependencies struct {
	DB               *sql.DB
	Publisher        messaging.LedgerPublisher
	TokenIssuer      *utils.TokenIssuer
	OperationTimeout time.Duration
}

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, deps Dependencies) {
	db, timeout := deps.DB, deps.OperationTimeout

	// Initialize Repositories
	authRepo := repositories.NewAuthRepository()
	itemRepo := repositories.NewItemRepository()
	movementRepo := repositories.NewMovementRepository()
	warehouseRepo := repositories.NewWarehouseRepository()
	supplierRepo := repositories.NewSupplierRepository()
	categoryRepo := repositories.NewCategoryRepository()

	// Initialize Services
	authService := services.NewAuthService(db, authRepo, warehouseRepo, deps.TokenIssuer, timeout)
	itemService := services.NewItemService(db, itemRepo, movementRepo, warehouseRepo, categoryRepo, timeout)
	movementService := services.NewMovementService(db, itemRepo, movementRepo, deps.Publisher, timeout)
	transferService := services.NewTransferService(db, itemRepo, movementRepo, warehouseRepo, deps.Publisher, timeout)
	warehouseService := services.NewWarehouseService(db, warehouseRepo, itemRepo, authRepo, timeout)
	supplierService := services.NewSupplierService(db, supplierRepo, timeout)
	categoryService := services.NewCategoryService(db, categoryRepo, timeout)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	itemHandler := handlers.NewItemHandler(itemService)
	movementHandler := handlers.NewMovementHandler(movementService, transferService)
	warehouseHandler := handlers.NewWarehouseHandler(warehouseService)
	supplierHandler := handlers.NewSupplierHandler(supplierService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)

	apiV1 := engine.Group("/api/v1")

	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware(deps.TokenIssuer, authService))
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupUserRoutes(authenticated, authHandler)
		SetupItemRoutes(authenticated, itemHandler)
		SetupCategoryRoutes(authenticated, categoryHandler)
		SetupMovementRoutes(authenticated, movementHandler)
		SetupTransferRoutes(authenticated, movementHandler)
		SetupWarehouseRoutes(authenticated, warehouseHandler)
		SetupSupplierRoutes(authenticated, supplierHandler)
	}
}
