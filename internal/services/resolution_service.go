package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/google/uuid"
)

// TargetRegistry resolves and destroys reported entities.
type TargetRegistry interface {
	Resolve(ctx context.Context, ref models.TargetRef) (targets.Detail, error)
	Destroy(ctx context.Context, kind targets.DestroyableKind, id string, mode targets.DestroyMode) error
}

// Decision is a moderator's verdict on a pending report.
type Decision struct {
	NewStatus     models.ReportStatus
	Action        models.ModerationAction
	ModeratorNote string
}

type ResolutionOptions struct {
	StepTimeout     time.Duration
	ClaimLease      time.Duration
	SuspendDuration time.Duration
}

// ResolutionService moves reports out of pending. A report's side effect always
// completes before its status is written, and at most one caller runs it.
type ResolutionService struct {
	reports  ReportStore
	claims   ClaimStore
	registry TargetRegistry
	users    UserModerator
	opts     ResolutionOptions
	now      func() time.Time
}

func NewResolutionService(reports ReportStore, claims ClaimStore, registry TargetRegistry, users UserModerator, opts ResolutionOptions) *ResolutionService {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 5 * time.Second
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = 30 * time.Second
	}
	if opts.SuspendDuration <= 0 {
		opts.SuspendDuration = 7 * 24 * time.Hour
	}
	return &ResolutionService{
		reports:  reports,
		claims:   claims,
		registry: registry,
		users:    users,
		opts:     opts,
		now:      time.Now,
	}
}

// Resolve applies decision to the report. Errors match ErrReportNotFound,
// ErrAlreadyResolved, ErrResolutionInProgress, ErrInvalidAction,
// ErrInvalidReport (overlong note) or ErrTargetActionFailed; in every error
// case the report is left as it was.
func (s *ResolutionService) Resolve(ctx context.Context, reportID uuid.UUID, moderatorID string, d Decision) (*models.Report, error) {
	report, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.StatusPending {
		return nil, &AlreadyResolvedError{Status: report.Status}
	}
	if d.Action == "" {
		d.Action = models.ActionNone
	}
	if err := validateDecision(report, d); err != nil {
		return nil, err
	}

	claim, err := s.acquire(ctx, report, moderatorID, d)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, report, claim)
}

const maxNoteLen = 1000

func validateDecision(report *models.Report, d Decision) error {
	if utf8.RuneCountInString(d.ModeratorNote) > maxNoteLen {
		return fmt.Errorf("%w: moderator note must be at most %d characters", ErrInvalidReport, maxNoteLen)
	}
	if !d.NewStatus.IsTerminal() {
		return fmt.Errorf("%w: status %q is not a final status", ErrInvalidAction, d.NewStatus)
	}
	if !d.Action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidAction, d.Action)
	}
	if !IsApplicable(d.Action, report.Target.Kind) {
		return fmt.Errorf("%w: %s cannot be applied to a %s report", ErrInvalidAction, d.Action, report.Target.Kind)
	}
	return nil
}

// acquire claims the report for this call. A claim whose effect already ran is
// returned as is, so the caller only finishes the status write.
func (s *ResolutionService) acquire(ctx context.Context, report *models.Report, moderatorID string, d Decision) (*models.ResolutionClaim, error) {
	claim := &models.ResolutionClaim{
		ReportID:      report.ID,
		Token:         uuid.New(),
		State:         models.ClaimHeld,
		NewStatus:     d.NewStatus,
		Action:        d.Action,
		ModeratorNote: d.ModeratorNote,
		ModeratorID:   moderatorID,
		ClaimedAt:     s.now(),
	}
	ok, err := s.claims.Claim(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("claim report: %w", err)
	}
	if ok {
		return s.confirmPending(ctx, report.ID, claim)
	}

	existing, err := s.claims.GetClaim(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("load claim: %w", err)
	}
	if existing == nil {
		// The other caller finished or gave up between our insert and read.
		return nil, s.conflict(ctx, report.ID)
	}

	if existing.State == models.ClaimEffectApplied {
		if existing.NewStatus == d.NewStatus && existing.Action == d.Action {
			return existing, nil
		}
		// Someone else's effect already ran; their decision stands.
		if _, err := s.commit(ctx, report, existing); err != nil {
			return nil, err
		}
		return nil, &AlreadyResolvedError{Status: existing.NewStatus}
	}

	if existing.ClaimedAt.Before(s.now().Add(-s.opts.ClaimLease)) {
		taken, err := s.claims.TakeOver(ctx, existing.Token, claim)
		if err != nil {
			return nil, fmt.Errorf("take over claim: %w", err)
		}
		if taken {
			slog.Warn("took over stale resolution claim", "report_id", report.ID.String(), "previous_moderator", existing.ModeratorID)
			return s.confirmPending(ctx, report.ID, claim)
		}
	}
	return nil, ErrResolutionInProgress
}

// confirmPending re-reads the report once the claim is held. A claim can be
// won right after another caller committed and dropped theirs.
func (s *ResolutionService) confirmPending(ctx context.Context, reportID uuid.UUID, claim *models.ResolutionClaim) (*models.ResolutionClaim, error) {
	current, err := s.reports.Get(ctx, reportID)
	if err == nil && current.Status == models.StatusPending {
		return claim, nil
	}
	if rerr := s.claims.Release(ctx, reportID, claim.Token); rerr != nil {
		slog.Error("failed to release resolution claim", "report_id", reportID.String(), "error", rerr)
	}
	if err != nil {
		return nil, err
	}
	return nil, &AlreadyResolvedError{Status: current.Status}
}

// run applies the claimed decision's effect if it has not run yet and then
// writes the status.
func (s *ResolutionService) run(ctx context.Context, report *models.Report, claim *models.ResolutionClaim) (*models.Report, error) {
	if claim.State == models.ClaimHeld {
		if err := s.applyEffect(ctx, report, claim); err != nil {
			// A timed-out or abandoned effect may still land; keep the claim
			// so no one repeats it before the lease runs out.
			if !errors.Is(err, ErrTimeout) && ctx.Err() == nil {
				releaseCtx, cancel := s.detached(ctx)
				defer cancel()
				if rerr := s.claims.Release(releaseCtx, report.ID, claim.Token); rerr != nil {
					slog.Error("failed to release resolution claim", "report_id", report.ID.String(), "error", rerr)
				}
			}
			slog.Warn("report resolution aborted", "report_id", report.ID.String(), "action", string(claim.Action), "error", err.Error())
			return nil, err
		}

		// The effect is irreversible from here on, so finish even if the caller left.
		markCtx, cancel := s.detached(ctx)
		defer cancel()
		marked, err := s.claims.MarkEffectApplied(markCtx, report.ID, claim.Token)
		if err != nil {
			slog.Error("failed to record applied effect", "report_id", report.ID.String(), "error", err)
			return nil, fmt.Errorf("record applied effect: %w", err)
		}
		if !marked {
			return nil, ErrResolutionInProgress
		}
		claim.State = models.ClaimEffectApplied
	}

	commitCtx, cancel := s.detached(ctx)
	defer cancel()
	return s.commit(commitCtx, report, claim)
}

func (s *ResolutionService) commit(ctx context.Context, report *models.Report, claim *models.ResolutionClaim) (*models.Report, error) {
	upd := StatusUpdate{
		Status:      claim.NewStatus,
		Action:      claim.Action,
		Note:        claim.ModeratorNote,
		ModeratorID: claim.ModeratorID,
		At:          s.now(),
	}
	ok, err := s.claims.CommitResolution(ctx, report.ID, claim.Token, upd)
	if err != nil {
		slog.Error("failed to commit report status", "report_id", report.ID.String(), "error", err)
		return nil, fmt.Errorf("commit resolution: %w", err)
	}
	if !ok {
		return nil, s.conflict(ctx, report.ID)
	}

	resolved := *report
	resolved.Status = upd.Status
	resolved.Action = upd.Action
	resolved.ModeratorNote = upd.Note
	resolved.ModeratorID = upd.ModeratorID
	resolved.UpdatedAt = upd.At

	slog.Info("report resolved",
		"report_id", report.ID.String(),
		"moderator_id", upd.ModeratorID,
		"action", string(upd.Action),
		"status", string(upd.Status),
		"target", report.Target.String(),
	)
	return &resolved, nil
}

// conflict explains why a report could not be moved by this caller.
func (s *ResolutionService) conflict(ctx context.Context, reportID uuid.UUID) error {
	current, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return &AlreadyResolvedError{Status: current.Status}
	}
	return ErrResolutionInProgress
}

func (s *ResolutionService) applyEffect(ctx context.Context, report *models.Report, claim *models.ResolutionClaim) error {
	effect := EffectFor(claim.Action)
	switch effect.Type {
	case NoEffect:
		return nil

	case InvokeDestroy:
		kind, ok := targets.Destroyable(report.Target.Kind)
		if !ok {
			return fmt.Errorf("%w: %s reports cannot be destroyed inline", ErrInvalidAction, report.Target.Kind)
		}
		return s.step(ctx, report.Target, effect.Mode.String(), func(stepCtx context.Context) error {
			return s.registry.Destroy(stepCtx, kind, report.Target.ID, effect.Mode)
		})

	case NotifyAuthor:
		return s.step(ctx, report.Target, effect.Level.String(), func(stepCtx context.Context) error {
			detail, err := s.registry.Resolve(stepCtx, report.Target)
			if err != nil {
				return fmt.Errorf("resolve author: %w", err)
			}
			author := detail.Author()
			reason := claim.ModeratorNote
			switch effect.Level {
			case LevelWarning:
				return s.users.Warn(stepCtx, author, report.ID, reason)
			case LevelSuspension:
				return s.users.Suspend(stepCtx, author, report.ID, s.opts.SuspendDuration, reason)
			case LevelBan:
				return s.users.Ban(stepCtx, author, report.ID, reason)
			}
			return fmt.Errorf("unknown sanction level %d", effect.Level)
		})
	}
	return fmt.Errorf("unknown effect type %d", effect.Type)
}

// step runs fn under the per-step timeout. fn is abandoned, not awaited, once
// the deadline passes.
func (s *ResolutionService) step(ctx context.Context, target models.TargetRef, op string, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.opts.StepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(stepCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-stepCtx.Done():
		err = stepCtx.Err()
	}
	if err == nil {
		return nil
	}
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return &TargetActionError{Target: target, Op: op, Err: err}
}

// detached returns a context that survives caller cancellation but is still
// bounded by the step timeout.
func (s *ResolutionService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opts.StepTimeout)
}

// Reconcile finishes resolutions whose caller disappeared. Claims with an
// applied effect get their status written; claims stuck before that point are
// re-run. Destroys are idempotent and sanctions are keyed by report, so a
// repeat of an effect that already landed changes nothing. Claims left on
// reports that are gone or already closed are dropped.
func (s *ResolutionService) Reconcile(ctx context.Context, limit int) (int, error) {
	stale, err := s.claims.StaleClaims(ctx, s.now().Add(-s.opts.ClaimLease), limit)
	if err != nil {
		return 0, fmt.Errorf("list stale claims: %w", err)
	}

	finished := 0
	for i := range stale {
		claim := stale[i]
		report, err := s.reports.Get(ctx, claim.ReportID)
		if err != nil && !errors.Is(err, ErrReportNotFound) {
			return finished, err
		}
		// A closed report never gets another side effect.
		if err != nil || report.Status != models.StatusPending {
			if rerr := s.claims.Release(ctx, claim.ReportID, claim.Token); rerr != nil {
				slog.Error("failed to drop orphaned claim", "report_id", claim.ReportID.String(), "error", rerr)
			}
			continue
		}

		if claim.State == models.ClaimHeld {
			fresh := claim
			fresh.Token = uuid.New()
			fresh.ClaimedAt = s.now()
			taken, err := s.claims.TakeOver(ctx, claim.Token, &fresh)
			if err != nil {
				return finished, err
			}
			if !taken {
				continue
			}
			claim = fresh
		}

		if _, err := s.run(ctx, report, &claim); err != nil {
			slog.Warn("reconcile resolution failed", "report_id", claim.ReportID.String(), "error", err.Error())
			continue
		}
		finished++
	}
	return finished, nil
}
