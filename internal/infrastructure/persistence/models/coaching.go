package models

import (
	"time"

	"github.com/google/uuid"
)

// ReflectionModel maps to the reflections table. Rows are written by the
// journaling flow; this service only reads them for streak computation.
type ReflectionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID    string    `gorm:"not null;index:idx_reflections_user_entry"`
	EntryDate time.Time `gorm:"not null;index:idx_reflections_user_entry"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for ReflectionModel
func (ReflectionModel) TableName() string {
	return "reflections"
}
