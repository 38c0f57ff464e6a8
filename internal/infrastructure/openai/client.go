package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/momentum/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// UpstreamError indicates the completion API answered with a non-success
// status. The raw response body is preserved for the caller.
type UpstreamError struct {
	StatusCode int
	Details    json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// TransportError indicates the completion API could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to contact upstream: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ChatResult is the outcome of a successful completion call
type ChatResult struct {
	// Raw is the upstream response body, passed through untouched
	Raw json.RawMessage
	// TotalTokens is the authoritative token count reported by the
	// upstream usage block, falling back to the request's max_tokens
	// when the block is absent
	TotalTokens int64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int64         `json:"max_tokens"`
}

// usageEnvelope extracts just the usage block from the upstream response.
// Pointers distinguish an absent block from a zero count.
type usageEnvelope struct {
	Usage *struct {
		TotalTokens *int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Client calls the OpenAI chat completion API
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewClient creates a new completion API client
func NewClient(cfg *config.OpenAIConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger.Named("openai"),
	}
}

// CreateChatCompletion sends a single-message completion request. One
// attempt only; retrying would double-spend tokens the caller has not been
// charged for yet.
func (c *Client) CreateChatCompletion(ctx context.Context, prompt string, maxTokens int64) (*ChatResult, error) {
	payload, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Upstream unreachable", zap.Error(err))
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Upstream error response",
			zap.Int("status", resp.StatusCode),
		)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Details: body}
	}

	return &ChatResult{
		Raw:         body,
		TotalTokens: extractTotalTokens(body, maxTokens),
	}, nil
}

// extractTotalTokens pulls the reported total from the usage block, or
// returns the fallback when the upstream omitted it.
func extractTotalTokens(body []byte, fallback int64) int64 {
	var env usageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fallback
	}
	if env.Usage == nil || env.Usage.TotalTokens == nil {
		return fallback
	}
	return *env.Usage.TotalTokens
}
