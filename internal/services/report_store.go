package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps the row offset within an int32.
	maxPage = math.MaxInt32 / maxPageSize
)

// ReportFilter selects reports for list views. Zero fields do not filter.
type ReportFilter struct {
	Status   models.ReportStatus
	Kind     models.ReportTargetKind
	Search   string
	Page     int
	PageSize int
}

// Normalize clamps paging to sane bounds.
func (f ReportFilter) Normalize() ReportFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// StatusUpdate is written to a report when it leaves pending.
type StatusUpdate struct {
	Status      models.ReportStatus
	Action      models.ModerationAction
	Note        string
	ModeratorID string
	At          time.Time
}

// ReportStore persists reports.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)
	// CASUpdateStatus applies upd only if the report is still in expected.
	CASUpdateStatus(ctx context.Context, id uuid.UUID, expected models.ReportStatus, upd StatusUpdate) (bool, error)
	List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error)
	CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error)
}

// ClaimStore guards a report while its side effect runs.
type ClaimStore interface {
	// Claim inserts claim unless one already exists for the report.
	Claim(ctx context.Context, claim *models.ResolutionClaim) (bool, error)
	// GetClaim returns nil, nil when the report is not claimed.
	GetClaim(ctx context.Context, reportID uuid.UUID) (*models.ResolutionClaim, error)
	// TakeOver replaces a claim still holding oldToken.
	TakeOver(ctx context.Context, oldToken uuid.UUID, claim *models.ResolutionClaim) (bool, error)
	MarkEffectApplied(ctx context.Context, reportID, token uuid.UUID) (bool, error)
	Release(ctx context.Context, reportID, token uuid.UUID) error
	// CommitResolution drops the claim and applies upd to a pending report in
	// one transaction. It reports false if the claim was lost or the report
	// had already left pending.
	CommitResolution(ctx context.Context, reportID, token uuid.UUID, upd StatusUpdate) (bool, error)
	StaleClaims(ctx context.Context, before time.Time, limit int) ([]models.ResolutionClaim, error)
}

// GormReportStore implements ReportStore and ClaimStore.
type GormReportStore struct {
	db *gorm.DB
}

func NewGormReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{db: db}
}

// Scopes

func WithStatus(status models.ReportStatus) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}
}

func WithKind(kind models.ReportTargetKind) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if kind == "" {
			return db
		}
		return db.Where("target_kind = ?", kind)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// WithSearch matches text case-insensitively against the report id and reason.
func WithSearch(text string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if text == "" {
			return db
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		return db.Where(`(LOWER(CAST(id AS TEXT)) LIKE ? ESCAPE '\' OR LOWER(reason) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
}

func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

func (s *GormReportStore) Create(ctx context.Context, report *models.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (s *GormReportStore) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (s *GormReportStore) CASUpdateStatus(ctx context.Context, id uuid.UUID, expected models.ReportStatus, upd StatusUpdate) (bool, error) {
	return casUpdateStatus(s.db.WithContext(ctx), id, expected, upd)
}

func casUpdateStatus(db *gorm.DB, id uuid.UUID, expected models.ReportStatus, upd StatusUpdate) (bool, error) {
	result := db.Model(&models.Report{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]interface{}{
			"status":         upd.Status,
			"action":         upd.Action,
			"moderator_note": upd.Note,
			"moderator_id":   upd.ModeratorID,
			"updated_at":     upd.At,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormReportStore) List(ctx context.Context, filter ReportFilter) ([]models.Report, int64, error) {
	f := filter.Normalize()
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{}).
		Scopes(WithStatus(f.Status), WithKind(f.Kind), WithSearch(f.Search)).
		Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Order("id DESC").
		Scopes(Paginate(f.Page, f.PageSize)).
		Find(&reports).Error
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *GormReportStore) CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	var rows []struct {
		Status models.ReportStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.ReportStatus]int64, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *GormReportStore) Claim(ctx context.Context, claim *models.ResolutionClaim) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(claim)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormReportStore) GetClaim(ctx context.Context, reportID uuid.UUID) (*models.ResolutionClaim, error) {
	var claim models.ResolutionClaim
	err := s.db.WithContext(ctx).Where("report_id = ?", reportID).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (s *GormReportStore) TakeOver(ctx context.Context, oldToken uuid.UUID, claim *models.ResolutionClaim) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.ResolutionClaim{}).
		Where("report_id = ? AND token = ?", claim.ReportID, oldToken).
		Updates(map[string]interface{}{
			"token":          claim.Token,
			"state":          claim.State,
			"new_status":     claim.NewStatus,
			"action":         claim.Action,
			"moderator_note": claim.ModeratorNote,
			"moderator_id":   claim.ModeratorID,
			"claimed_at":     claim.ClaimedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormReportStore) MarkEffectApplied(ctx context.Context, reportID, token uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.ResolutionClaim{}).
		Where("report_id = ? AND token = ?", reportID, token).
		Update("state", models.ClaimEffectApplied)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormReportStore) Release(ctx context.Context, reportID, token uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("report_id = ? AND token = ?", reportID, token).
		Delete(&models.ResolutionClaim{}).Error
}

var errClaimLost = errors.New("claim lost")

func (s *GormReportStore) CommitResolution(ctx context.Context, reportID, token uuid.UUID, upd StatusUpdate) (bool, error) {
	committed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("report_id = ? AND token = ?", reportID, token).Delete(&models.ResolutionClaim{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errClaimLost
		}
		ok, err := casUpdateStatus(tx, reportID, models.StatusPending, upd)
		if err != nil {
			return err
		}
		committed = ok
		return nil
	})
	if errors.Is(err, errClaimLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return committed, nil
}

func (s *GormReportStore) StaleClaims(ctx context.Context, before time.Time, limit int) ([]models.ResolutionClaim, error) {
	var claims []models.ResolutionClaim
	err := s.db.WithContext(ctx).
		Where("claimed_at < ?", before).
		Order("claimed_at ASC").
		Limit(limit).
		Find(&claims).Error
	return claims, err
}
