// Package testhelpers builds throwaway databases and fixtures for tests.
package testhelpers

import (
	"fmt"
	"testing"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/database"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// A single connection keeps the in-memory database alive and serializes access.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=private", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// SeedUser inserts a user with the given nickname.
func SeedUser(t *testing.T, db *gorm.DB, nickname string) *models.User {
	t.Helper()
	u := &models.User{Email: nickname + "@example.com", Nickname: nickname, Status: models.UserActive}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedComment inserts a comment written by author.
func SeedComment(t *testing.T, db *gorm.DB, author uuid.UUID, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{NovelID: uuid.New(), AuthorID: author, Content: content}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

// SeedNovel inserts a novel written by author.
func SeedNovel(t *testing.T, db *gorm.DB, author uuid.UUID, title string) *models.Novel {
	t.Helper()
	n := &models.Novel{AuthorID: author, Title: title}
	if err := db.Create(n).Error; err != nil {
		t.Fatalf("seed novel: %v", err)
	}
	return n
}

// SeedReport inserts a pending report against target.
func SeedReport(t *testing.T, db *gorm.DB, reporter uuid.UUID, kind models.ReportTargetKind, targetID, reason string) *models.Report {
	t.Helper()
	r := &models.Report{
		ReporterID: reporter,
		Target:     models.TargetRef{Kind: kind, ID: targetID},
		Reason:     reason,
		Status:     models.StatusPending,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed report: %v", err)
	}
	return r
}
