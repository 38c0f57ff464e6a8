package metering

import (
	"context"
	"encoding/json"
	"time"

	"github.com/momentum/backend/internal/domain/metering"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/openai"
	"go.uber.org/zap"
)

// ErrOverLimit is returned when admitting a request would exceed the caller's
// monthly token budget.
var ErrOverLimit = shared.NewDomainError("OVER_MONTHLY_LIMIT", "Over monthly token limit")

// CompletionClient is the port to the upstream completion API
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, prompt string, maxTokens int64) (*openai.ChatResult, error)
}

// QuotaSnapshotCache is the port to the read-path quota cache. Implementations
// are best-effort; the gateway never blocks on cache failures.
type QuotaSnapshotCache interface {
	Invalidate(ctx context.Context, userID string, periodStart time.Time) error
}

// GuardInput is a validated completion request on behalf of a user
type GuardInput struct {
	UserID    string
	Prompt    string
	MaxTokens int64
}

// GuardOutput is the outcome of an admitted and completed request
type GuardOutput struct {
	// Upstream is the completion API response body, passed through untouched
	Upstream json.RawMessage
	// TokensUsed is the charge applied to the user's budget
	TokensUsed int64
	// Quota reflects usage after reconciliation. When Degraded is set it is
	// computed locally because the store could not confirm the increment.
	Quota *metering.TokenQuota
	// Degraded marks a success whose charge may not have been persisted
	Degraded bool
}

// GatewayService admits completion requests against per-user monthly token
// budgets and reconciles actual usage after the upstream call.
type GatewayService struct {
	quotaRepo    metering.TokenQuotaRepository
	upstream     CompletionClient
	cache        QuotaSnapshotCache
	defaultLimit int64
	logger       *zap.Logger
	now          func() time.Time
}

// NewGatewayService creates a new GatewayService. cache may be nil when no
// snapshot cache is configured.
func NewGatewayService(
	quotaRepo metering.TokenQuotaRepository,
	upstream CompletionClient,
	cache QuotaSnapshotCache,
	defaultLimit int64,
	logger *zap.Logger,
) *GatewayService {
	return &GatewayService{
		quotaRepo:    quotaRepo,
		upstream:     upstream,
		cache:        cache,
		defaultLimit: defaultLimit,
		logger:       logger.Named("gateway"),
		now:          time.Now,
	}
}

// Guard runs the full admit-call-reconcile sequence for one request.
//
// Admission is an optimistic estimate check: it reads the current counter and
// rejects when used + MaxTokens would exceed the limit. No tokens are
// reserved, so concurrent requests can all pass admission and push the
// counter past the limit at reconciliation; the overshoot is bounded by
// MaxTokens per in-flight request and the next request is rejected.
//
// A failed upstream call charges nothing. A failed reconciliation after a
// successful upstream call is a degraded success: the user already received
// the completion, so the error is logged and absorbed rather than surfaced.
func (s *GatewayService) Guard(ctx context.Context, input GuardInput) (*GuardOutput, error) {
	if input.UserID == "" || input.Prompt == "" || input.MaxTokens <= 0 {
		return nil, shared.ErrInvalidInput
	}

	periodStart := metering.MonthStart(s.now())

	quota, err := s.quotaRepo.GetOrCreate(ctx, input.UserID, periodStart, s.defaultLimit)
	if err != nil {
		s.logger.Error("Failed to load quota record",
			zap.String("user_id", input.UserID),
			zap.Error(err),
		)
		return nil, shared.ErrStoreUnavailable
	}

	if !quota.CanConsume(input.MaxTokens) {
		s.logger.Info("Request rejected over budget",
			zap.String("user_id", input.UserID),
			zap.Int64("used", quota.Used),
			zap.Int64("limit", quota.Limit),
			zap.Int64("requested", input.MaxTokens),
		)
		return nil, ErrOverLimit
	}

	// The charge must be recorded even if the caller disconnects while the
	// upstream call is in flight, so the remaining steps run on a context
	// detached from request cancellation.
	callCtx := context.WithoutCancel(ctx)

	result, err := s.upstream.CreateChatCompletion(callCtx, input.Prompt, input.MaxTokens)
	if err != nil {
		// Nothing was charged; the error maps to a gateway response upstream
		// of this service.
		return nil, err
	}

	output := &GuardOutput{
		Upstream:   result.Raw,
		TokensUsed: result.TotalTokens,
	}

	updated, err := s.quotaRepo.AddUsage(callCtx, input.UserID, periodStart, result.TotalTokens)
	if err != nil {
		s.logger.Error("Failed to reconcile token usage",
			zap.String("user_id", input.UserID),
			zap.Int64("tokens_used", result.TotalTokens),
			zap.Error(err),
		)
		// Best local approximation of the post-charge state.
		synthesized := *quota
		synthesized.Used += result.TotalTokens
		output.Quota = &synthesized
		output.Degraded = true
	} else {
		output.Quota = updated
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(callCtx, input.UserID, periodStart); err != nil {
			s.logger.Warn("Failed to invalidate quota snapshot",
				zap.String("user_id", input.UserID),
				zap.Error(err),
			)
		}
	}

	return output, nil
}
