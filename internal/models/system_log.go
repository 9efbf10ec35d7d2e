package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records so failed resolutions can be inspected later.
type SystemLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp   time.Time      `gorm:"not null;index" json:"timestamp"`
	Level       string         `gorm:"size:10;not null;index" json:"level"`
	Message     string         `gorm:"type:text" json:"message"`
	RequestID   string         `gorm:"size:64;index" json:"requestId"`
	ReportID    string         `gorm:"size:36;index" json:"reportId"`
	ModeratorID *string        `gorm:"size:64" json:"moderatorId"`
	Action      string         `gorm:"size:100" json:"action"`
	Error       string         `gorm:"type:text" json:"error"`
	LatencyMs   int            `json:"latencyMs"`
	Extra       datatypes.JSON `gorm:"type:jsonb" json:"extra"`
	CreatedAt   time.Time      `json:"createdAt"`
}
