package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PGHandler is an slog.Handler that batches ERROR+ logs to PostgreSQL. Failed
// resolutions land here with their report and moderator ids.
type PGHandler struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
	stop   sync.Once
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	h := &PGHandler{
		db:     db,
		buffer: make([]models.SystemLog, 0, 50),
		ticker: time.NewTicker(5 * time.Second),
		done:   make(chan struct{}),
	}
	go h.flushLoop()
	return h
}

func (h *PGHandler) flushLoop() {
	for {
		select {
		case <-h.ticker.C:
			h.flush()
		case <-h.done:
			h.flush()
			return
		}
	}
}

func (h *PGHandler) flush() {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.buffer
	h.buffer = make([]models.SystemLog, 0, 50)
	h.mu.Unlock()

	if err := h.db.CreateInBatches(batch, 50).Error; err != nil {
		slog.Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes what is buffered and ends the flush loop.
func (h *PGHandler) Stop() {
	h.stop.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	apply := func(a slog.Attr) bool {
		switch a.Key {
		case "request_id":
			entry.RequestID = a.Value.String()
		case "report_id":
			entry.ReportID = a.Value.String()
		case "moderator_id":
			s := a.Value.String()
			entry.ModeratorID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			switch a.Value.Kind() {
			case slog.KindFloat64:
				entry.LatencyMs = int(math.Round(a.Value.Float64()))
			case slog.KindInt64:
				entry.LatencyMs = int(a.Value.Int64())
			case slog.KindDuration:
				entry.LatencyMs = int(a.Value.Duration().Milliseconds())
			}
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	record.Attrs(apply)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, entry)
	needFlush := len(h.buffer) >= 50
	h.mu.Unlock()

	if needFlush {
		go h.flush()
	}
	return nil
}

// WithAttrs returns a handler sharing this one's buffer with attrs added to
// every record.
func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &pgChild{parent: h, attrs: attrs}
}

func (h *PGHandler) WithGroup(name string) slog.Handler {
	return h
}

// pgChild carries attrs for a PGHandler without copying its buffer or lock.
type pgChild struct {
	parent *PGHandler
	attrs  []slog.Attr
}

func (c *pgChild) Enabled(ctx context.Context, level slog.Level) bool {
	return c.parent.Enabled(ctx, level)
}

func (c *pgChild) Handle(ctx context.Context, record slog.Record) error {
	r := record.Clone()
	r.AddAttrs(c.attrs...)
	return c.parent.Handle(ctx, r)
}

func (c *pgChild) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &pgChild{parent: c.parent, attrs: append(append([]slog.Attr{}, c.attrs...), attrs...)}
}

func (c *pgChild) WithGroup(name string) slog.Handler {
	return c
}
