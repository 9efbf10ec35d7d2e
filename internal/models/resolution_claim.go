package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimState tracks how far a resolution got before its status write.
type ClaimState string

const (
	ClaimHeld          ClaimState = "claimed"
	ClaimEffectApplied ClaimState = "effect_applied"
)

// ResolutionClaim marks a report as being resolved by one caller. The row is
// removed in the same transaction that writes the report's terminal status.
type ResolutionClaim struct {
	ReportID      uuid.UUID        `gorm:"type:uuid;primaryKey" json:"reportId"`
	Token         uuid.UUID        `gorm:"type:uuid;not null" json:"-"`
	State         ClaimState       `gorm:"size:20;not null" json:"state"`
	NewStatus     ReportStatus     `gorm:"size:20;not null" json:"newStatus"`
	Action        ModerationAction `gorm:"size:30;not null" json:"action"`
	ModeratorNote string           `gorm:"size:1000" json:"moderatorNote,omitempty"`
	ModeratorID   string           `gorm:"size:64" json:"moderatorId,omitempty"`
	ClaimedAt     time.Time        `gorm:"not null;index" json:"claimedAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (ResolutionClaim) TableName() string {
	return "resolution_claims"
}
