package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/testhelpers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const moderator = "mod-1"

func newResolution(db *gorm.DB, reg TargetRegistry, users UserModerator) (*ResolutionService, *GormReportStore) {
	store := NewGormReportStore(db)
	return NewResolutionService(store, store, reg, users, ResolutionOptions{
		StepTimeout: 200 * time.Millisecond,
		ClaimLease:  time.Minute,
	}), store
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) models.Report {
	t.Helper()
	var r models.Report
	require.NoError(t, db.First(&r, "id = ?", id).Error)
	return r
}

func claimCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ResolutionClaim{}).Count(&n).Error)
	return n
}

func TestResolveDeletesCommentThenResolves(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := targets.NewRegistry(targets.NewGormAccessors(db).Accessors())
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	author := testhelpers.SeedUser(t, db, "author")
	comment := testhelpers.SeedComment(t, db, author.ID, "rude comment")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, comment.ID.String(), "harassment")

	resolved, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionDeleteResource,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&count).Error)
	assert.Zero(t, count)

	stored := reload(t, db, report.ID)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Equal(t, models.ActionDeleteResource, stored.Action)
	assert.Equal(t, moderator, stored.ModeratorID)
	assert.Zero(t, claimCount(t, db))
}

func TestResolveTwiceReturnsAlreadyResolved(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := targets.NewRegistry(targets.NewGormAccessors(db).Accessors())
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	comment := testhelpers.SeedComment(t, db, reader.ID, "text")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, comment.ID.String(), "")
	ctx := context.Background()

	_, err := svc.Resolve(ctx, report.ID, moderator, Decision{NewStatus: models.StatusResolved, Action: models.ActionDeleteResource})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, report.ID, "mod-2", Decision{NewStatus: models.StatusRejected, Action: models.ActionNone})
	require.ErrorIs(t, err, ErrAlreadyResolved)
	var already *AlreadyResolvedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, models.StatusResolved, already.Status)

	stored := reload(t, db, report.ID)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Equal(t, moderator, stored.ModeratorID)
}

func TestResolveRejectsInapplicableAction(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindUser, uuid.NewString(), "spam account")

	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionDeleteResource,
	})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, models.StatusPending, reload(t, db, report.ID).Status)
	assert.Zero(t, reg.destroyCount())
	assert.Zero(t, claimCount(t, db))
}

func TestResolveRequiresFinalStatus(t *testing.T) {
	db := testhelpers.NewDB(t)
	svc, _ := newResolution(db, newFakeRegistry(), &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")

	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusPending,
		Action:    models.ActionNone,
	})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestResolveMissingTargetIsStillDestroyed(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := targets.NewRegistry(targets.NewGormAccessors(db).Accessors())
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	comment := testhelpers.SeedComment(t, db, reader.ID, "gone soon")
	require.NoError(t, db.Delete(&models.Comment{}, "id = ?", comment.ID).Error)
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, comment.ID.String(), "")

	resolved, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionDeleteResource,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, resolved.Status)
}

func TestResolveUnknownReport(t *testing.T) {
	db := testhelpers.NewDB(t)
	svc, _ := newResolution(db, newFakeRegistry(), &fakeUsers{})

	_, err := svc.Resolve(context.Background(), uuid.New(), moderator, Decision{NewStatus: models.StatusIgnored})
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestResolveLeavesReportPendingWhenDestroyFails(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	reg.destroyErr = errors.New("comment service unavailable")
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")

	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionHideResource,
	})
	require.ErrorIs(t, err, ErrTargetActionFailed)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, models.StatusPending, reload(t, db, report.ID).Status)
	assert.Zero(t, claimCount(t, db), "a definite failure releases the claim")

	reg.mu.Lock()
	reg.destroyErr = nil
	reg.mu.Unlock()
	_, err = svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionHideResource,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.destroyCount())
}

func TestResolveTimeoutKeepsClaim(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	reg.delay = 2 * time.Second
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindForumPost, uuid.NewString(), "")

	start := time.Now()
	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionDeleteResource,
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, ErrTargetActionFailed)
	var actionErr *TargetActionError
	require.True(t, errors.As(err, &actionErr))
	assert.True(t, actionErr.Timeout())
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, models.StatusPending, reload(t, db, report.ID).Status)
	assert.EqualValues(t, 1, claimCount(t, db))

	_, err = svc.Resolve(context.Background(), report.ID, "mod-2", Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionDeleteResource,
	})
	assert.ErrorIs(t, err, ErrResolutionInProgress)
}

func TestConcurrentResolveDestroysOnce(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	reg.delay = 20 * time.Millisecond
	svc, _ := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	var others []error

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
				NewStatus: models.StatusResolved,
				Action:    models.ActionDeleteResource,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, reg.destroyCount())
	for _, err := range others {
		assert.True(t, errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrResolutionInProgress), err)
	}
	assert.Equal(t, models.StatusResolved, reload(t, db, report.ID).Status)
	assert.Zero(t, claimCount(t, db))
}

func TestResolveWarnsAuthorOfTarget(t *testing.T) {
	db := testhelpers.NewDB(t)
	author := uuid.New()
	chapter := &targets.ChapterDetail{ID: uuid.New(), NovelID: uuid.New(), AuthorID: author, Number: 1, Title: "Prologue"}
	reg := newFakeRegistry(chapter)
	users := &fakeUsers{}
	svc, _ := newResolution(db, reg, users)
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindChapter, chapter.ID.String(), "plagiarism")

	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus:     models.StatusResolved,
		Action:        models.ActionWarnAuthor,
		ModeratorNote: "copied text",
	})
	require.NoError(t, err)

	require.Len(t, users.calls, 1)
	assert.Equal(t, LevelWarning, users.calls[0].level)
	assert.Equal(t, author, users.calls[0].userID)
	assert.Equal(t, report.ID, users.calls[0].reportID)
	assert.Equal(t, "copied text", users.calls[0].reason)
	assert.Zero(t, reg.destroyCount())
}

func TestResolveBanOnUserReportTargetsTheUser(t *testing.T) {
	db := testhelpers.NewDB(t)
	member := &targets.UserDetail{ID: uuid.New(), Nickname: "troll"}
	users := &fakeUsers{}
	svc, _ := newResolution(db, newFakeRegistry(member), users)
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindUser, member.ID.String(), "")

	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionBanAuthor,
	})
	require.NoError(t, err)
	require.Len(t, users.calls, 1)
	assert.Equal(t, LevelBan, users.calls[0].level)
	assert.Equal(t, member.ID, users.calls[0].userID)
}

func TestResolveSanctionFailureLeavesReportPending(t *testing.T) {
	db := testhelpers.NewDB(t)
	member := &targets.UserDetail{ID: uuid.New()}
	users := &fakeUsers{err: ErrUserNotFound}
	svc, _ := newResolution(db, newFakeRegistry(member), users)
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindUser, member.ID.String(), "")

	_, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{
		NewStatus: models.StatusResolved,
		Action:    models.ActionSuspendAuthor,
	})
	assert.ErrorIs(t, err, ErrTargetActionFailed)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, models.StatusPending, reload(t, db, report.ID).Status)
}

func TestRejectWithoutActionTouchesNothing(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	users := &fakeUsers{}
	svc, _ := newResolution(db, reg, users)
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindNovel, uuid.NewString(), "")

	resolved, err := svc.Resolve(context.Background(), report.ID, moderator, Decision{NewStatus: models.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, resolved.Status)
	assert.Zero(t, reg.destroyCount())
	assert.Empty(t, users.calls)
}

func TestReconcileFinishesAbandonedResolutions(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	svc, store := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	applied := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")
	held := testhelpers.SeedReport(t, db, reader.ID, models.KindForumComment, uuid.NewString(), "")
	fresh := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)

	for _, c := range []models.ResolutionClaim{
		{ReportID: applied.ID, Token: uuid.New(), State: models.ClaimEffectApplied, NewStatus: models.StatusResolved, Action: models.ActionDeleteResource, ModeratorID: moderator, ClaimedAt: old},
		{ReportID: held.ID, Token: uuid.New(), State: models.ClaimHeld, NewStatus: models.StatusResolved, Action: models.ActionHideResource, ModeratorID: moderator, ClaimedAt: old},
		{ReportID: fresh.ID, Token: uuid.New(), State: models.ClaimHeld, NewStatus: models.StatusResolved, Action: models.ActionDeleteResource, ModeratorID: moderator, ClaimedAt: time.Now()},
	} {
		ok, err := store.Claim(ctx, &c)
		require.NoError(t, err)
		require.True(t, ok)
	}

	n, err := svc.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, models.StatusResolved, reload(t, db, applied.ID).Status)
	assert.Equal(t, models.StatusResolved, reload(t, db, held.ID).Status)
	assert.Equal(t, models.StatusPending, reload(t, db, fresh.ID).Status)
	assert.Equal(t, 1, reg.destroyCount(), "only the held claim re-runs its effect")
	assert.EqualValues(t, 1, claimCount(t, db))
}

func TestResolveResumesAppliedClaim(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	svc, store := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")
	ctx := context.Background()

	ok, err := store.Claim(ctx, &models.ResolutionClaim{
		ReportID: report.ID, Token: uuid.New(), State: models.ClaimEffectApplied,
		NewStatus: models.StatusResolved, Action: models.ActionHideResource,
		ModeratorID: "mod-crashed", ClaimedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Resolve(ctx, report.ID, moderator, Decision{NewStatus: models.StatusRejected, Action: models.ActionNone})
	var already *AlreadyResolvedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, models.StatusResolved, already.Status)

	stored := reload(t, db, report.ID)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Equal(t, models.ActionHideResource, stored.Action)
	assert.Equal(t, "mod-crashed", stored.ModeratorID)
	assert.Zero(t, reg.destroyCount())
}

func TestReconcileDropsClaimOnClosedReport(t *testing.T) {
	db := testhelpers.NewDB(t)
	reg := newFakeRegistry()
	svc, store := newResolution(db, reg, &fakeUsers{})
	reader := testhelpers.SeedUser(t, db, "reader")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, uuid.NewString(), "")
	ctx := context.Background()

	_, err := svc.Resolve(ctx, report.ID, moderator, Decision{NewStatus: models.StatusRejected, Action: models.ActionNone})
	require.NoError(t, err)

	// A claim that outlived its report's resolution, e.g. after a failed release.
	ok, err := store.Claim(ctx, &models.ResolutionClaim{
		ReportID: report.ID, Token: uuid.New(), State: models.ClaimHeld,
		NewStatus: models.StatusResolved, Action: models.ActionDeleteResource,
		ModeratorID: "mod-2", ClaimedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	require.True(t, ok)

	n, err := svc.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, reg.destroyCount())
	assert.Zero(t, claimCount(t, db))
	assert.Equal(t, models.StatusRejected, reload(t, db, report.ID).Status)
}

func TestReconcileDoesNotRepeatLandedWarning(t *testing.T) {
	db := testhelpers.NewDB(t)
	author := testhelpers.SeedUser(t, db, "author")
	reader := testhelpers.SeedUser(t, db, "reader")
	comment := testhelpers.SeedComment(t, db, author.ID, "spoilers everywhere")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, comment.ID.String(), "")
	users := NewUserModerationService(db)
	reg := targets.NewRegistry(targets.NewGormAccessors(db).Accessors())
	svc, store := newResolution(db, reg, users)
	ctx := context.Background()

	// The first attempt's warning landed after its caller timed out.
	require.NoError(t, users.Warn(ctx, author.ID, report.ID, "spoilers"))
	ok, err := store.Claim(ctx, &models.ResolutionClaim{
		ReportID: report.ID, Token: uuid.New(), State: models.ClaimHeld,
		NewStatus: models.StatusResolved, Action: models.ActionWarnAuthor,
		ModeratorNote: "spoilers", ModeratorID: moderator, ClaimedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	require.True(t, ok)

	n, err := svc.Reconcile(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.StatusResolved, reload(t, db, report.ID).Status)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", author.ID).Error)
	assert.Equal(t, 1, stored.WarningCount)

	var sanctions int64
	require.NoError(t, db.Model(&models.UserSanction{}).Where("user_id = ?", author.ID).Count(&sanctions).Error)
	assert.EqualValues(t, 1, sanctions)
}

func TestResolveRejectsOverlongNote(t *testing.T) {
	db := testhelpers.NewDB(t)
	author := testhelpers.SeedUser(t, db, "author")
	reader := testhelpers.SeedUser(t, db, "reader")
	comment := testhelpers.SeedComment(t, db, author.ID, "rude")
	report := testhelpers.SeedReport(t, db, reader.ID, models.KindComment, comment.ID.String(), "")
	reg := targets.NewRegistry(targets.NewGormAccessors(db).Accessors())
	svc, _ := newResolution(db, reg, NewUserModerationService(db))
	ctx := context.Background()

	_, err := svc.Resolve(ctx, report.ID, moderator, Decision{
		NewStatus:     models.StatusResolved,
		Action:        models.ActionWarnAuthor,
		ModeratorNote: strings.Repeat("é", maxNoteLen+1),
	})
	assert.ErrorIs(t, err, ErrInvalidReport)
	assert.Zero(t, claimCount(t, db))
	assert.Equal(t, models.StatusPending, reload(t, db, report.ID).Status)

	note := strings.Repeat("é", maxNoteLen)
	_, err = svc.Resolve(ctx, report.ID, moderator, Decision{
		NewStatus:     models.StatusResolved,
		Action:        models.ActionWarnAuthor,
		ModeratorNote: note,
	})
	require.NoError(t, err)

	var sanction models.UserSanction
	require.NoError(t, db.Where("user_id = ?", author.ID).First(&sanction).Error)
	assert.Equal(t, note, sanction.Reason, "the note is stored as the sanction reason unchanged")
	assert.Equal(t, report.ID, sanction.ReportID)
}
