package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/momentum/backend/internal/domain/metering"
	"github.com/momentum/backend/internal/interfaces/http/dto"
)

// UsageReader is the application port for quota snapshots
type UsageReader interface {
	GetCurrentUsage(ctx context.Context, userID string) (*metering.TokenQuota, error)
}

// UsageHandler serves read-only quota snapshots
type UsageHandler struct {
	BaseHandler
	usage UsageReader
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage/:user_id", h.GetUsage)
}

// GetUsage handles GET /usage/:user_id
func (h *UsageHandler) GetUsage(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		h.BadRequest(c, "user_id is required")
		return
	}

	quota, err := h.usage.GetCurrentUsage(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.UsageResponse{
		UserID:       quota.UserID,
		PeriodStart:  quota.PeriodStart,
		Used:         quota.Used,
		Limit:        quota.Limit,
		Remaining:    quota.Remaining(),
		UsagePercent: quota.UsagePercent(),
	})
}
