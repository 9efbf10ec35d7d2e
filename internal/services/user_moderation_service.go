package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("user not found")

// UserModerator applies sanctions to authors of reported content. Repeating a
// call for the same user, report and kind is a no-op.
type UserModerator interface {
	Warn(ctx context.Context, userID, reportID uuid.UUID, reason string) error
	Suspend(ctx context.Context, userID, reportID uuid.UUID, duration time.Duration, reason string) error
	Ban(ctx context.Context, userID, reportID uuid.UUID, reason string) error
}

// UserModerationService records sanctions and updates account standing.
type UserModerationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserModerationService(db *gorm.DB) *UserModerationService {
	return &UserModerationService{db: db, now: time.Now}
}

func (s *UserModerationService) Warn(ctx context.Context, userID, reportID uuid.UUID, reason string) error {
	return s.apply(ctx, userID, reportID, models.SanctionWarning, reason, nil, map[string]interface{}{
		"warning_count": gorm.Expr("warning_count + 1"),
	})
}

func (s *UserModerationService) Suspend(ctx context.Context, userID, reportID uuid.UUID, duration time.Duration, reason string) error {
	until := s.now().Add(duration)
	return s.apply(ctx, userID, reportID, models.SanctionSuspension, reason, &until, map[string]interface{}{
		"status":          gorm.Expr("CASE WHEN status = ? THEN status ELSE ? END", models.UserBanned, models.UserSuspended),
		"suspended_until": until,
	})
}

func (s *UserModerationService) Ban(ctx context.Context, userID, reportID uuid.UUID, reason string) error {
	return s.apply(ctx, userID, reportID, models.SanctionBan, reason, nil, map[string]interface{}{
		"status": models.UserBanned,
	})
}

// apply records the sanction first; if the report already sanctioned this user
// with the same kind, the account is left alone.
func (s *UserModerationService) apply(ctx context.Context, userID, reportID uuid.UUID, kind models.SanctionKind, reason string, expires *time.Time, updates map[string]interface{}) error {
	meta := map[string]interface{}{"source": "report_moderation"}
	if expires != nil {
		meta["expires_at"] = expires.UTC().Format(time.RFC3339)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sanction := models.UserSanction{
			UserID:    userID,
			ReportID:  reportID,
			Kind:      kind,
			Reason:    reason,
			ExpiresAt: expires,
			Meta:      datatypes.JSON(metaJSON),
		}
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sanction)
		if created.Error != nil {
			return fmt.Errorf("failed to record %s: %w", kind, created.Error)
		}
		if created.RowsAffected == 0 {
			return nil
		}

		result := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
