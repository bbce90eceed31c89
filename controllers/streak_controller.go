package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

// StreakController serves the caller's streak.
type StreakController struct {
	svc *services.EntryService
}

// NewStreakController creates a StreakController.
func NewStreakController(svc *services.EntryService) *StreakController {
	return &StreakController{svc: svc}
}

// Get returns current, longest, goal and lastDate.
func (s *StreakController) Get(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	view, err := s.svc.Streak(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err, 50020)
		return
	}
	utils.Success(ctx, view)
}
