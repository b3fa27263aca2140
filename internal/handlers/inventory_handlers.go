package handlers

import (
	"net/http"
	"strings"

	"stockledger/internal/models"
	"stockledger/internal/services"
	"stockledger/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ItemHandler serves the item store.
type ItemHandler struct {
	itemService services.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(is services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: is}
}

// ListItems handles GET /items?warehouse=&search=&category=&status=
func (h *ItemHandler) ListItems(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	warehouseID, ok := queryID(c, "warehouse")
	if !ok {
		return
	}

	filters := models.ItemFilters{
		WarehouseID: warehouseID,
		Search:      strings.TrimSpace(c.Query("search")),
		Category:    strings.TrimSpace(c.Query("category")),
		Status:      c.Query("status"),
	}
	items, err := h.itemService.ListItems(c.Request.Context(), access, filters)
	if err != nil {
		respondServiceError(c, err, "list items")
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetItem handles GET /items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	item, err := h.itemService.GetItem(c.Request.Context(), access, id)
	if err != nil {
		respondServiceError(c, err, "fetch item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// CreateItem handles POST /items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	var req services.CreateItemRequest
	if !bindJSON(c, &req, "CreateItem") {
		return
	}

	item, err := h.itemService.CreateItem(c.Request.Context(), access, req)
	if err != nil {
		respondServiceError(c, err, "create item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateItem handles PATCH /items/:id. The body replaces every descriptive field.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateItemRequest
	if !bindJSON(c, &req, "UpdateItem") {
		return
	}

	item, err := h.itemService.UpdateItem(c.Request.Context(), access, id, req)
	if err != nil {
		respondServiceError(c, err, "update item")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.itemService.DeleteItem(c.Request.Context(), access, id); err != nil {
		respondServiceError(c, err, "delete item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// CategoryHandler serves the default and custom categories.
type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(cs services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: cs}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if !bindJSON(c, &req, "CreateCategory") {
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), access, req.Name)
	if err != nil {
		respondServiceError(c, err, "create category")
		return
	}
	utils.LogInfo("Custom category created", map[string]interface{}{"category_id": category.ID, "name": category.Name})
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
