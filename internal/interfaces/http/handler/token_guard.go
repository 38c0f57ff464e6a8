package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	appmetering "github.com/momentum/backend/internal/application/metering"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/logger"
	"github.com/momentum/backend/internal/infrastructure/openai"
	"github.com/momentum/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// GuardService is the application port the handler drives
type GuardService interface {
	Guard(ctx context.Context, input appmetering.GuardInput) (*appmetering.GuardOutput, error)
}

// TokenGuardHandler serves the metered completion endpoint. Its wire format
// is fixed by existing clients: plain text for malformed requests, bare
// {"error": ...} objects for rejections and upstream failures, and the
// ok/openai/tokens_used/quota envelope on success.
type TokenGuardHandler struct {
	gateway GuardService
}

// NewTokenGuardHandler creates a new TokenGuardHandler
func NewTokenGuardHandler(gateway GuardService) *TokenGuardHandler {
	return &TokenGuardHandler{gateway: gateway}
}

// RegisterRoutes registers token guard routes
func (h *TokenGuardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/token-guard", h.Guard)
}

// Guard handles POST /token-guard
func (h *TokenGuardHandler) Guard(c *gin.Context) {
	var req dto.TokenGuardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			c.String(http.StatusBadRequest, "Missing required fields")
			return
		}
		c.String(http.StatusBadRequest, "Invalid JSON")
		return
	}

	out, err := h.gateway.Guard(c.Request.Context(), appmetering.GuardInput{
		UserID:    req.UserID,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		h.writeGuardError(c, err)
		return
	}

	if out.Degraded {
		logger.GetGinLogger(c).Error("Usage charge not persisted",
			zap.String("user_id", req.UserID),
			zap.Int64("tokens_used", out.TokensUsed),
		)
	}

	c.JSON(http.StatusOK, dto.TokenGuardResponse{
		OK:         true,
		OpenAI:     out.Upstream,
		TokensUsed: out.TokensUsed,
		Quota: dto.QuotaInfo{
			Used:  out.Quota.Used,
			Limit: out.Quota.Limit,
		},
	})
}

func (h *TokenGuardHandler) writeGuardError(c *gin.Context, err error) {
	if errors.Is(err, appmetering.ErrOverLimit) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Over monthly token limit"})
		return
	}

	var upstreamErr *openai.UpstreamError
	if errors.As(err, &upstreamErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "OpenAI error",
			"details": rawOrString(upstreamErr.Details),
		})
		return
	}

	var transportErr *openai.TransportError
	if errors.As(err, &transportErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to contact OpenAI",
			"details": transportErr.Err.Error(),
		})
		return
	}

	if errors.Is(err, shared.ErrInvalidInput) {
		c.String(http.StatusBadRequest, "Missing required fields")
		return
	}

	if errors.Is(err, shared.ErrStoreUnavailable) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to check quota",
			"details": shared.ErrStoreUnavailable.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal error",
		"details": err.Error(),
	})
}

// rawOrString embeds upstream details verbatim when they are valid JSON,
// otherwise as a string. Some upstream failures return HTML bodies.
func rawOrString(b []byte) any {
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	return string(b)
}
