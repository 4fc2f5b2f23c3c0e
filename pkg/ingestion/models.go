package ingestion

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusAccepted  = "accepted"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Record tracks one submitted text until the normalizer picks it up.
type Record struct {
	ID          string            `json:"id" gorm:"primaryKey;column:id"`
	Source      string            `json:"source" gorm:"column:source"`
	SourceFile  string            `json:"source_file,omitempty" gorm:"column:source_file"`
	TextBytes   int               `json:"text_bytes" gorm:"column:text_bytes"`
	PHITypes    datatypes.JSON    `json:"phi_types,omitempty" gorm:"column:phi_types"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	Status      string            `json:"status" gorm:"column:status"`
	Error       string            `json:"error,omitempty" gorm:"column:error"`
	CreatedAt   time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"column:updated_at"`
	RetryCount  int               `json:"retry_count" gorm:"column:retry_count"`
	LastAttempt *time.Time        `json:"last_attempt,omitempty" gorm:"column:last_attempt"`
}

func (Record) TableName() string {
	return "ingestion_requests"
}
