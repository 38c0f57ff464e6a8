package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/momentum/backend/internal/domain/metering"
)

// TokenUsageModel maps to the gpt_token_usage table. One row per user per
// billing period, with a unique index on (user_id, period_start) so that
// concurrent first-time requests converge on a single row.
type TokenUsageModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_token_usage_user_period"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_token_usage_user_period"`
	TokensUsed  int64     `gorm:"not null;default:0"`
	TokensLimit int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for TokenUsageModel
func (TokenUsageModel) TableName() string {
	return "gpt_token_usage"
}

// ToEntity converts the persistence model to a domain TokenQuota
func (m *TokenUsageModel) ToEntity() *metering.TokenQuota {
	return &metering.TokenQuota{
		UserID:      m.UserID,
		PeriodStart: m.PeriodStart.UTC(),
		Used:        m.TokensUsed,
		Limit:       m.TokensLimit,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// TokenUsageModelFromEntity converts a domain TokenQuota to a persistence model
func TokenUsageModelFromEntity(q *metering.TokenQuota) *TokenUsageModel {
	return &TokenUsageModel{
		ID:          uuid.New(),
		UserID:      q.UserID,
		PeriodStart: q.PeriodStart,
		TokensUsed:  q.Used,
		TokensLimit: q.Limit,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}
