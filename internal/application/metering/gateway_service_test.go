package metering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/momentum/backend/internal/domain/metering"
	"github.com/momentum/backend/internal/domain/shared"
	"github.com/momentum/backend/internal/infrastructure/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations

type mockQuotaRepository struct {
	mock.Mock
}

func (m *mockQuotaRepository) GetOrCreate(ctx context.Context, userID string, periodStart time.Time, defaultLimit int64) (*metering.TokenQuota, error) {
	args := m.Called(ctx, userID, periodStart, defaultLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.TokenQuota), args.Error(1)
}

func (m *mockQuotaRepository) AddUsage(ctx context.Context, userID string, periodStart time.Time, actualUnits int64) (*metering.TokenQuota, error) {
	args := m.Called(ctx, userID, periodStart, actualUnits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.TokenQuota), args.Error(1)
}

func (m *mockQuotaRepository) FindByUserAndPeriod(ctx context.Context, userID string, periodStart time.Time) (*metering.TokenQuota, error) {
	args := m.Called(ctx, userID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.TokenQuota), args.Error(1)
}

type mockCompletionClient struct {
	mock.Mock
}

func (m *mockCompletionClient) CreateChatCompletion(ctx context.Context, prompt string, maxTokens int64) (*openai.ChatResult, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.ChatResult), args.Error(1)
}

type mockSnapshotCache struct {
	mock.Mock
}

func (m *mockSnapshotCache) Invalidate(ctx context.Context, userID string, periodStart time.Time) error {
	args := m.Called(ctx, userID, periodStart)
	return args.Error(0)
}

func quotaFixture(userID string, used, limit int64) *metering.TokenQuota {
	return &metering.TokenQuota{
		UserID:      userID,
		PeriodStart: metering.MonthStart(time.Now()),
		Used:        used,
		Limit:       limit,
	}
}

func newTestGateway(repo *mockQuotaRepository, client *mockCompletionClient, cache QuotaSnapshotCache) *GatewayService {
	return NewGatewayService(repo, client, cache, 100000, zap.NewNop())
}

func TestGuardValidation(t *testing.T) {
	svc := newTestGateway(&mockQuotaRepository{}, &mockCompletionClient{}, nil)

	tests := []struct {
		name  string
		input GuardInput
	}{
		{"empty user", GuardInput{Prompt: "hi", MaxTokens: 10}},
		{"empty prompt", GuardInput{UserID: "u1", MaxTokens: 10}},
		{"zero max tokens", GuardInput{UserID: "u1", Prompt: "hi"}},
		{"negative max tokens", GuardInput{UserID: "u1", Prompt: "hi", MaxTokens: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Guard(context.Background(), tt.input)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestGuardHappyPath(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 1000, 100000), nil)
	client.On("CreateChatCompletion", mock.Anything, "hello", int64(256)).
		Return(&openai.ChatResult{Raw: []byte(`{"id":"chatcmpl-1"}`), TotalTokens: 42}, nil)
	repo.On("AddUsage", mock.Anything, "u1", mock.Anything, int64(42)).
		Return(quotaFixture("u1", 1042, 100000), nil)

	svc := newTestGateway(repo, client, nil)
	out, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, int64(42), out.TokensUsed)
	assert.Equal(t, int64(1042), out.Quota.Used)
	assert.False(t, out.Degraded)
	assert.JSONEq(t, `{"id":"chatcmpl-1"}`, string(out.Upstream))

	repo.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestGuardOverLimit(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	// 99900 used of 100000: a 256-token estimate does not fit.
	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 99900, 100000), nil)

	svc := newTestGateway(repo, client, nil)
	_, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})
	assert.ErrorIs(t, err, ErrOverLimit)

	// Rejected requests never reach the upstream.
	client.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuardExactFit(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	// used + max_tokens == limit is admitted.
	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 99744, 100000), nil)
	client.On("CreateChatCompletion", mock.Anything, "hello", int64(256)).
		Return(&openai.ChatResult{Raw: []byte(`{}`), TotalTokens: 200}, nil)
	repo.On("AddUsage", mock.Anything, "u1", mock.Anything, int64(200)).
		Return(quotaFixture("u1", 99944, 100000), nil)

	svc := newTestGateway(repo, client, nil)
	out, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, int64(200), out.TokensUsed)
}

func TestGuardUpstreamFailureChargesNothing(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 0, 100000), nil)
	client.On("CreateChatCompletion", mock.Anything, "hello", int64(256)).
		Return(nil, &openai.UpstreamError{StatusCode: 500, Details: []byte(`{"error":"boom"}`)})

	svc := newTestGateway(repo, client, nil)
	_, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})

	var upstreamErr *openai.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	repo.AssertNotCalled(t, "AddUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGuardStoreUnavailable(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(nil, errors.New("connection refused"))

	svc := newTestGateway(repo, client, nil)
	_, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
	client.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuardReconcileFailureIsDegradedSuccess(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 1000, 100000), nil)
	client.On("CreateChatCompletion", mock.Anything, "hello", int64(256)).
		Return(&openai.ChatResult{Raw: []byte(`{}`), TotalTokens: 42}, nil)
	repo.On("AddUsage", mock.Anything, "u1", mock.Anything, int64(42)).
		Return(nil, errors.New("connection reset"))

	svc := newTestGateway(repo, client, nil)
	out, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})
	require.NoError(t, err, "user already received the completion")

	assert.True(t, out.Degraded)
	assert.Equal(t, int64(42), out.TokensUsed)
	assert.Equal(t, int64(1042), out.Quota.Used, "locally computed post-charge state")
}

func TestGuardInvalidatesSnapshotCache(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}
	snapCache := &mockSnapshotCache{}

	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 0, 100000), nil)
	client.On("CreateChatCompletion", mock.Anything, "hello", int64(256)).
		Return(&openai.ChatResult{Raw: []byte(`{}`), TotalTokens: 10}, nil)
	repo.On("AddUsage", mock.Anything, "u1", mock.Anything, int64(10)).
		Return(quotaFixture("u1", 10, 100000), nil)
	snapCache.On("Invalidate", mock.Anything, "u1", mock.Anything).
		Return(errors.New("redis down"))

	svc := newTestGateway(repo, client, snapCache)
	out, err := svc.Guard(context.Background(), GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})

	// Cache failures never affect the response.
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	snapCache.AssertExpectations(t)
}

func TestGuardSurvivesCallerDisconnect(t *testing.T) {
	repo := &mockQuotaRepository{}
	client := &mockCompletionClient{}

	repo.On("GetOrCreate", mock.Anything, "u1", mock.Anything, int64(100000)).
		Return(quotaFixture("u1", 0, 100000), nil)

	ctx, cancel := context.WithCancel(context.Background())

	client.On("CreateChatCompletion", mock.Anything, "hello", int64(256)).
		Run(func(args mock.Arguments) {
			// Simulate the caller dropping mid-call; the detached context
			// must stay alive.
			cancel()
			callCtx := args.Get(0).(context.Context)
			assert.NoError(t, callCtx.Err())
		}).
		Return(&openai.ChatResult{Raw: []byte(`{}`), TotalTokens: 5}, nil)
	repo.On("AddUsage", mock.Anything, "u1", mock.Anything, int64(5)).
		Return(quotaFixture("u1", 5, 100000), nil)

	svc := newTestGateway(repo, client, nil)
	out, err := svc.Guard(ctx, GuardInput{UserID: "u1", Prompt: "hello", MaxTokens: 256})
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.TokensUsed)
	repo.AssertExpectations(t)
}
