package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SanctionKind mirrors the author-facing moderation actions.
type SanctionKind string

const (
	SanctionWarning    SanctionKind = "warning"
	SanctionSuspension SanctionKind = "suspension"
	SanctionBan        SanctionKind = "ban"
)

// UserSanction records a warning, suspension or ban applied to a user. A report
// sanctions a user at most once per kind.
type UserSanction struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_sanctions_user_report_kind,priority:1" json:"userId"`
	ReportID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_sanctions_user_report_kind,priority:2" json:"reportId"`
	Kind      SanctionKind   `gorm:"size:20;not null;uniqueIndex:idx_sanctions_user_report_kind,priority:3" json:"kind"`
	Reason    string         `gorm:"size:1000" json:"reason,omitempty"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	Meta      datatypes.JSON `gorm:"type:jsonb" json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (s *UserSanction) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (UserSanction) TableName() string {
	return "user_sanctions"
}
