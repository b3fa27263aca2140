package handlers

import (
	"net/http"

	"stockledger/internal/services"

	"github.com/gin-gonic/gin"
)

// WarehouseHandler serves the warehouse registry.
type WarehouseHandler struct {
	warehouseService services.WarehouseService
}

// NewWarehouseHandler creates a new WarehouseHandler.
func NewWarehouseHandler(ws services.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouseService: ws}
}

func (h *WarehouseHandler) ListWarehouses(c *gin.Context) {
	warehouses, err := h.warehouseService.ListWarehouses(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list warehouses")
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

func (h *WarehouseHandler) GetWarehouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	warehouse, err := h.warehouseService.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch warehouse")
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func (h *WarehouseHandler) CreateWarehouse(c *gin.Context) {
	var req services.WarehouseRequest
	if !bindJSON(c, &req, "CreateWarehouse") {
		return
	}
	warehouse, err := h.warehouseService.CreateWarehouse(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create warehouse")
		return
	}
	c.JSON(http.StatusCreated, warehouse)
}

func (h *WarehouseHandler) UpdateWarehouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.WarehouseRequest
	if !bindJSON(c, &req, "UpdateWarehouse") {
		return
	}
	warehouse, err := h.warehouseService.UpdateWarehouse(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "update warehouse")
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

// DeleteWarehouse answers 409 while items still reference the warehouse.
func (h *WarehouseHandler) DeleteWarehouse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.warehouseService.DeleteWarehouse(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "delete warehouse")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Warehouse deleted successfully"})
}
