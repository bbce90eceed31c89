package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenify/greenify/middleware"
	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// respondServiceError maps engine errors onto the response envelope.
func respondServiceError(ctx *gin.Context, err error, internalCode int) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.Error(ctx, http.StatusBadRequest, 40002, ve.Error())
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, services.ErrStreakConflict):
		utils.Error(ctx, http.StatusConflict, 40903, "streak was updated concurrently, retry the request")
	default:
		utils.L().Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, internalCode, "internal server error")
	}
}
