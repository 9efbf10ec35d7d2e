package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler sends each record to every sink that wants it. The server runs
// the JSON stdout handler next to PGHandler, so failed resolutions land both in
// the container log and in system_logs with their report_id and moderator_id
// columns for the admin console.
type MultiHandler struct {
	sinks []slog.Handler
}

func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	return &MultiHandler{sinks: sinks}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps writing to the remaining sinks when one fails, so a database
// outage never silences stdout.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = fn(h)
	}
	return &MultiHandler{sinks: sinks}
}
