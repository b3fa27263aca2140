package handlers

import (
	"net/http"
	"strconv"
	"time"

	"stockledger/internal/models"
	"stockledger/internal/services"
	"stockledger/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MovementHandler serves the movement ledger and stock transfers.
type MovementHandler struct {
	movementService services.MovementService
	transferService services.TransferService
}

// NewMovementHandler creates a new MovementHandler.
func NewMovementHandler(ms services.MovementService, ts services.TransferService) *MovementHandler {
	return &MovementHandler{movementService: ms, transferService: ts}
}

// RecordMovement handles POST /movements
func (h *MovementHandler) RecordMovement(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	var req services.RecordMovementRequest
	if !bindJSON(c, &req, "RecordMovement") {
		return
	}

	movement, err := h.movementService.RecordMovement(c.Request.Context(), access, req)
	if err != nil {
		respondServiceError(c, err, "record movement")
		return
	}
	c.JSON(http.StatusCreated, movement)
}

// ListMovements handles GET /movements?from=&to=&warehouse=&type=&item_id=&limit=
// Dates are YYYY-MM-DD; to covers the whole day.
func (h *MovementHandler) ListMovements(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}

	from, err := utils.ParseDate(c.Query("from"))
	if err != nil {
		utils.RespondValidationFailed(c, "invalid from: "+err.Error())
		return
	}
	to, err := utils.ParseDate(c.Query("to"))
	if err != nil {
		utils.RespondValidationFailed(c, "invalid to: "+err.Error())
		return
	}
	if to != nil {
		endOfDay := to.Add(24*time.Hour - time.Nanosecond)
		to = &endOfDay
	}
	warehouseID, ok := queryID(c, "warehouse")
	if !ok {
		return
	}
	itemID, ok := queryID(c, "item_id")
	if !ok {
		return
	}
	limit := models.MaxMovementPage
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			utils.RespondValidationFailed(c, "invalid limit: "+raw)
			return
		}
	}

	movements, err := h.movementService.ListMovements(c.Request.Context(), access, models.MovementFilters{
		From:         from,
		To:           to,
		WarehouseID:  warehouseID,
		MovementType: c.Query("type"),
		ItemID:       itemID,
		Limit:        limit,
	})
	if err != nil {
		respondServiceError(c, err, "list movements")
		return
	}
	c.JSON(http.StatusOK, movements)
}

// CreateTransfer handles POST /transfers
func (h *MovementHandler) CreateTransfer(c *gin.Context) {
	access, ok := currentAccess(c)
	if !ok {
		return
	}
	var req services.TransferRequest
	if !bindJSON(c, &req, "CreateTransfer") {
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), access, req)
	if err != nil {
		respondServiceError(c, err, "transfer stock")
		return
	}
	c.JSON(http.StatusCreated, result)
}
