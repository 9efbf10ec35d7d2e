package services

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/google/uuid"
)

// fakeRegistry serves fixed details and counts destroys.
type fakeRegistry struct {
	mu         sync.Mutex
	details    map[models.TargetRef]targets.Detail
	destroyErr error
	delay      time.Duration
	destroys   int
	resolves   map[models.TargetRef]int
}

func newFakeRegistry(details ...targets.Detail) *fakeRegistry {
	f := &fakeRegistry{
		details:  make(map[models.TargetRef]targets.Detail),
		resolves: make(map[models.TargetRef]int),
	}
	for _, d := range details {
		f.details[models.TargetRef{Kind: d.Kind(), ID: d.TargetID()}] = d
	}
	return f
}

func (f *fakeRegistry) Resolve(ctx context.Context, ref models.TargetRef) (targets.Detail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves[ref]++
	d, ok := f.details[ref]
	if !ok {
		return nil, targets.ErrTargetNotFound
	}
	return d, nil
}

func (f *fakeRegistry) Destroy(ctx context.Context, kind targets.DestroyableKind, id string, mode targets.DestroyMode) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.destroys++
	return nil
}

func (f *fakeRegistry) destroyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroys
}

type sanctionCall struct {
	level    WarningLevel
	userID   uuid.UUID
	reportID uuid.UUID
	reason   string
}

// fakeUsers records sanctions instead of writing them.
type fakeUsers struct {
	mu    sync.Mutex
	calls []sanctionCall
	err   error
}

func (f *fakeUsers) record(level WarningLevel, userID, reportID uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, sanctionCall{level: level, userID: userID, reportID: reportID, reason: reason})
	return nil
}

func (f *fakeUsers) Warn(ctx context.Context, userID, reportID uuid.UUID, reason string) error {
	return f.record(LevelWarning, userID, reportID, reason)
}

func (f *fakeUsers) Suspend(ctx context.Context, userID, reportID uuid.UUID, d time.Duration, reason string) error {
	return f.record(LevelSuspension, userID, reportID, reason)
}

func (f *fakeUsers) Ban(ctx context.Context, userID, reportID uuid.UUID, reason string) error {
	return f.record(LevelBan, userID, reportID, reason)
}
