package router

import (
	"stockledger/internal/handlers"
	"stockledger/internal/middleware"
	"stockledger/internal/models"

	"github.com/gin-gonic/gin"
)

var allRoles = []string{models.RoleAdmin, models.RoleSupport, models.RoleUser}

func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
}

// SetupUserRoutes sets up account administration, admin only.
func SetupUserRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	userRoutes := authenticatedGroup.Group("/users")
	userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		userRoutes.GET("", authHandler.ListUsers)
		userRoutes.POST("", authHandler.CreateUser)
	}
}

// SetupItemRoutes sets up the item routes. Warehouse scoping happens in the service.
func SetupItemRoutes(authenticatedGroup *gin.RouterGroup, itemHandler *handlers.ItemHandler) {
	itemRoutes := authenticatedGroup.Group("/items")
	itemRoutes.Use(middleware.RoleAuthMiddleware(allRoles...))
	{
		itemRoutes.GET("", itemHandler.ListItems)
		itemRoutes.POST("", itemHandler.CreateItem)
		itemRoutes.GET("/:id", itemHandler.GetItem)
		itemRoutes.PATCH("/:id", itemHandler.UpdateItem)
		itemRoutes.PUT("/:id", itemHandler.UpdateItem)
		itemRoutes.DELETE("/:id", itemHandler.DeleteItem)
	}
}

func SetupCategoryRoutes(authenticatedGroup *gin.RouterGroup, categoryHandler *handlers.CategoryHandler) {
	categoryRoutes := authenticatedGroup.Group("/categories")
	categoryRoutes.GET("", middleware.RoleAuthMiddleware(allRoles...), categoryHandler.ListCategories)

	adminRoutes := categoryRoutes.Group("")
	adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		adminRoutes.POST("", categoryHandler.CreateCategory)
		adminRoutes.DELETE("/:id", categoryHandler.DeleteCategory)
	}
}

func SetupMovementRoutes(authenticatedGroup *gin.RouterGroup, movementHandler *handlers.MovementHandler) {
	movementRoutes := authenticatedGroup.Group("/movements")
	movementRoutes.Use(middleware.RoleAuthMiddleware(allRoles...))
	{
		movementRoutes.GET("", movementHandler.ListMovements)
		movementRoutes.POST("", movementHandler.RecordMovement)
	}
}

func SetupTransferRoutes(authenticatedGroup *gin.RouterGroup, movementHandler *handlers.MovementHandler) {
	transferRoutes := authenticatedGroup.Group("/transfers")
	transferRoutes.Use(middleware.RoleAuthMiddleware(allRoles...))
	{
		transferRoutes.POST("", movementHandler.CreateTransfer)
	}
}

// SetupWarehouseRoutes: every role may read, only admins write.
func SetupWarehouseRoutes(authenticatedGroup *gin.RouterGroup, warehouseHandler *handlers.WarehouseHandler) {
	warehouseRoutes := authenticatedGroup.Group("/warehouses")
	warehouseRoutes.GET("", middleware.RoleAuthMiddleware(allRoles...), warehouseHandler.ListWarehouses)
	warehouseRoutes.GET("/:id", middleware.RoleAuthMiddleware(allRoles...), warehouseHandler.GetWarehouse)

	adminRoutes := warehouseRoutes.Group("")
	adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		adminRoutes.POST("", warehouseHandler.CreateWarehouse)
		adminRoutes.PATCH("/:id", warehouseHandler.UpdateWarehouse)
		adminRoutes.PUT("/:id", warehouseHandler.UpdateWarehouse)
		adminRoutes.DELETE("/:id", warehouseHandler.DeleteWarehouse)
	}
}

func SetupSupplierRoutes(authenticatedGroup *gin.RouterGroup, supplierHandler *handlers.SupplierHandler) {
	supplierRoutes := authenticatedGroup.Group("/suppliers")
	supplierRoutes.GET("", middleware.RoleAuthMiddleware(allRoles...), supplierHandler.ListSuppliers)
	supplierRoutes.GET("/:id", middleware.RoleAuthMiddleware(allRoles...), supplierHandler.GetSupplier)

	writeRoutes := supplierRoutes.Group("")
	writeRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleSupport))
	{
		writeRoutes.POST("", supplierHandler.CreateSupplier)
		writeRoutes.PUT("/:id", supplierHandler.UpdateSupplier)
		writeRoutes.PATCH("/:id", supplierHandler.UpdateSupplier)
		writeRoutes.DELETE("/:id", supplierHandler.DeleteSupplier)
	}
}
