package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/momentum/backend/internal/domain/coaching"
	"github.com/momentum/backend/internal/interfaces/http/dto"
)

// StreakReader is the application port for streak computation
type StreakReader interface {
	GetStreak(ctx context.Context, userID string) (*coaching.Streak, error)
}

// StreakHandler serves reflection streak summaries
type StreakHandler struct {
	BaseHandler
	streaks StreakReader
}

// NewStreakHandler creates a new StreakHandler
func NewStreakHandler(streaks StreakReader) *StreakHandler {
	return &StreakHandler{streaks: streaks}
}

// RegisterRoutes registers streak routes
func (h *StreakHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/streaks/:user_id", h.GetStreak)
}

// GetStreak handles GET /streaks/:user_id
func (h *StreakHandler) GetStreak(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		h.BadRequest(c, "user_id is required")
		return
	}

	streak, err := h.streaks.GetStreak(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.StreakResponse{
		UserID:             streak.UserID,
		Days:               streak.Days,
		LastReflectionDate: streak.LastReflectionDate,
	})
}
