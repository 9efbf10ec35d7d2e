package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"gorm.io/gorm"
)

// CleanupLogs deletes system_logs older than retentionDays.
func CleanupLogs(ctx context.Context, db *gorm.DB, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		slog.Error("log cleanup failed", "error", result.Error)
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
