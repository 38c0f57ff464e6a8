package dto

import (
	"encoding/json"
	"time"
)

// TokenGuardRequest is the inbound completion request. Field names match the
// wire contract consumed by existing clients.
type TokenGuardRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Prompt    string `json:"prompt" binding:"required"`
	MaxTokens int64  `json:"max_tokens" binding:"required,gt=0"`
}

// QuotaInfo is the post-reconciliation usage snapshot returned with a success
type QuotaInfo struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// TokenGuardResponse is the success body: the raw upstream payload plus the
// charge applied and the updated budget
type TokenGuardResponse struct {
	OK         bool            `json:"ok"`
	OpenAI     json.RawMessage `json:"openai"`
	TokensUsed int64           `json:"tokens_used"`
	Quota      QuotaInfo       `json:"quota"`
}

// UsageResponse is the read-side quota snapshot
type UsageResponse struct {
	UserID       string    `json:"user_id"`
	PeriodStart  time.Time `json:"period_start"`
	Used         int64     `json:"used"`
	Limit        int64     `json:"limit"`
	Remaining    int64     `json:"remaining"`
	UsagePercent float64   `json:"usage_percent"`
}

// StreakResponse is the reflection streak summary
type StreakResponse struct {
	UserID             string     `json:"user_id"`
	Days               int        `json:"days"`
	LastReflectionDate *time.Time `json:"last_reflection_date"`
}
