package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

// EntryController serves daily entry endpoints.
type EntryController struct {
	svc *services.EntryService
}

// NewEntryController creates an EntryController.
func NewEntryController(svc *services.EntryService) *EntryController {
	return &EntryController{svc: svc}
}

// Upsert creates or replaces the caller's entry for a date and returns the scored view.
func (e *EntryController) Upsert(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req services.UpsertRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	view, err := e.svc.Upsert(ctx.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(ctx, err, 50010)
		return
	}
	utils.Success(ctx, view)
}

// Get returns the caller's entry for :date, zero-valued when none was submitted.
func (e *EntryController) Get(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	view, err := e.svc.Get(ctx.Request.Context(), userID, ctx.Param("date"))
	if err != nil {
		respondServiceError(ctx, err, 50011)
		return
	}
	utils.Success(ctx, view)
}
