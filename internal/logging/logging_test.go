package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/testhelpers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiHandlerFansOutByLevel(t *testing.T) {
	var info, errs bytes.Buffer
	logger := slog.New(NewMultiHandler(
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	)).With("service", "moderation")

	logger.Info("report resolved", "report_id", "r1")
	logger.Error("report resolution aborted", "report_id", "r2")

	assert.Equal(t, 2, bytes.Count(info.Bytes(), []byte("\n")))
	assert.Equal(t, 1, bytes.Count(errs.Bytes(), []byte("\n")))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(errs.Bytes(), &rec))
	assert.Equal(t, "r2", rec["report_id"])
	assert.Equal(t, "moderation", rec["service"])
}

type brokenSink struct{ slog.Handler }

func (brokenSink) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandlerKeepsWritingWhenASinkFails(t *testing.T) {
	var out bytes.Buffer
	stdout := slog.NewJSONHandler(&out, nil)
	h := NewMultiHandler(brokenSink{stdout}, stdout)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "claim release failed", 0))
	assert.EqualError(t, err, "sink down")
	assert.Contains(t, out.String(), "claim release failed")
}

func TestPGHandlerStoresErrors(t *testing.T) {
	db := testhelpers.NewDB(t)
	h := NewPGHandler(db)
	t.Cleanup(h.Stop)

	logger := slog.New(h).With("request_id", "req-7")
	logger.Info("ignored")
	logger.Error("failed to commit report status",
		"report_id", "r-1",
		"moderator_id", "mod-1",
		"action", "delete_resource",
		"error", errors.New("db gone"),
		"latency_ms", int64(42),
		"attempt", 2,
	)
	h.flush()

	var logs []models.SystemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "req-7", entry.RequestID)
	assert.Equal(t, "r-1", entry.ReportID)
	require.NotNil(t, entry.ModeratorID)
	assert.Equal(t, "mod-1", *entry.ModeratorID)
	assert.Equal(t, "delete_resource", entry.Action)
	assert.Equal(t, "db gone", entry.Error)
	assert.Equal(t, 42, entry.LatencyMs)
	assert.Contains(t, string(entry.Extra), "attempt")
}

func TestCleanupLogs(t *testing.T) {
	db := testhelpers.NewDB(t)
	old := models.SystemLog{ID: uuid.New(), Timestamp: time.Now().AddDate(0, 0, -40), Level: "ERROR", Message: "old"}
	recent := models.SystemLog{ID: uuid.New(), Timestamp: time.Now().Add(-time.Hour), Level: "ERROR", Message: "recent"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	deleted, err := CleanupLogs(context.Background(), db, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var left []models.SystemLog
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "recent", left[0].Message)
}
