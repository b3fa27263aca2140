package handlers

import (
	"errors"
	"net/http"

	"stockledger/internal/middleware"
	"stockledger/internal/models"
	"stockledger/internal/services"
	"stockledger/pkg/utils"

	"github.com/gin-gonic/gin"
)

// currentAccess returns the caller identity set by AuthMiddleware. It responds
// 401 and returns false when the request is unauthenticated.
func currentAccess(c *gin.Context) (models.AccessContext, bool) {
	raw, exists := c.Get(middleware.AccessContextKey)
	if exists {
		if access, ok := raw.(models.AccessContext); ok {
			return access, true
		}
	}
	utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing access context"))
	return models.AccessContext{}, false
}

// pathID parses a positive int64 path parameter, responding 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		utils.RespondValidationFailed(c, "invalid "+name+": "+c.Param(name))
		return 0, false
	}
	return id, true
}

// queryID parses an optional int64 query parameter.
func queryID(c *gin.Context, name string) (*int64, bool) {
	v, err := utils.OptionalInt64(c.Query(name))
	if err != nil {
		utils.RespondValidationFailed(c, "invalid "+name+": "+c.Query(name))
		return nil, false
	}
	return v, true
}

func bindJSON(c *gin.Context, req interface{}, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogWarn(err, op+": Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return false
	}
	return true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error, op string) {
	var storage *services.StorageError
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", ""))
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), ""))
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), ""))
	case errors.Is(err, services.ErrConflict):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	case errors.As(err, &storage) && storage.Retryable():
		utils.LogError(err, op+": storage unavailable", map[string]interface{}{"step": storage.Step})
		utils.RespondWithError(c, utils.NewStorageUnavailableError(storage.Step))
	case errors.As(err, &storage):
		utils.LogError(err, op+": storage failure", map[string]interface{}{"step": storage.Step})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to "+op+".", storage.Step))
	default:
		utils.LogError(err, op+": unexpected error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to "+op+".", "Internal error"))
	}
}
