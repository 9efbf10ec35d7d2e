package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Placeholder stands in for display strings whose lookup failed.
const Placeholder = "(unavailable)"

// ReportSummary is one row of the admin report list.
type ReportSummary struct {
	models.Report
	ReporterName string `json:"reporterName"`
	TargetTitle  string `json:"targetTitle"`
	ContentFlag  string `json:"contentFlag,omitempty"`
}

type Page[T any] struct {
	Items []T   `json:"reports"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// ReportDetailView is a report with its resolved target.
type ReportDetailView struct {
	Report       *models.Report `json:"report"`
	ReporterName string         `json:"reporterName"`
	Target       targets.Detail `json:"targetDetail,omitempty"`
	TargetError  string         `json:"targetError,omitempty"`
	ContentFlag  string         `json:"contentFlag,omitempty"`
}

type QueryOptions struct {
	StepTimeout time.Duration
	Concurrency int
}

// ReportQueryService serves filtered report listings to the admin console.
type ReportQueryService struct {
	reports  ReportStore
	registry TargetRegistry
	filter   *ContentFilter
	opts     QueryOptions
}

func NewReportQueryService(reports ReportStore, registry TargetRegistry, filter *ContentFilter, opts QueryOptions) *ReportQueryService {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 5 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &ReportQueryService{reports: reports, registry: registry, filter: filter, opts: opts}
}

// List returns one page of reports, newest first. Display strings that cannot
// be resolved fall back to Placeholder instead of failing the page.
func (s *ReportQueryService) List(ctx context.Context, filter ReportFilter) (*Page[ReportSummary], error) {
	f := filter.Normalize()
	reports, total, err := s.reports.List(ctx, f)
	if err != nil {
		return nil, err
	}

	refs := make([]models.TargetRef, 0, len(reports)*2)
	for _, r := range reports {
		refs = append(refs, reporterRef(r.ReporterID), r.Target)
	}
	details := s.lookup(ctx, refs)

	items := make([]ReportSummary, len(reports))
	for i, r := range reports {
		items[i] = ReportSummary{
			Report:       r,
			ReporterName: titleOf(details[reporterRef(r.ReporterID)]),
			TargetTitle:  titleOf(details[r.Target]),
			ContentFlag:  s.flag(details[r.Target]),
		}
	}

	return &Page[ReportSummary]{Items: items, Total: total, Page: f.Page, Limit: f.PageSize}, nil
}

// Get loads a single report together with its target.
func (s *ReportQueryService) Get(ctx context.Context, id uuid.UUID) (*ReportDetailView, error) {
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	details := s.lookup(ctx, []models.TargetRef{reporterRef(report.ReporterID), report.Target})
	view := &ReportDetailView{
		Report:       report,
		ReporterName: titleOf(details[reporterRef(report.ReporterID)]),
	}
	if d, ok := details[report.Target]; ok {
		view.Target = d
		view.ContentFlag = s.flag(d)
	} else {
		view.TargetError = Placeholder
	}
	return view, nil
}

// Counts returns the number of reports in every status.
func (s *ReportQueryService) Counts(ctx context.Context) (map[models.ReportStatus]int64, error) {
	return s.reports.CountByStatus(ctx)
}

// lookup resolves each distinct ref once, concurrently. Refs that fail are
// missing from the result.
func (s *ReportQueryService) lookup(ctx context.Context, refs []models.TargetRef) map[models.TargetRef]targets.Detail {
	unique := make(map[models.TargetRef]struct{}, len(refs))
	for _, ref := range refs {
		unique[ref] = struct{}{}
	}

	var mu sync.Mutex
	found := make(map[models.TargetRef]targets.Detail, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for ref := range unique {
		g.Go(func() error {
			stepCtx, cancel := context.WithTimeout(gctx, s.opts.StepTimeout)
			defer cancel()

			d, err := s.registry.Resolve(stepCtx, ref)
			if err != nil {
				slog.Debug("target lookup failed", "target", ref.String(), "error", err)
				return nil
			}
			mu.Lock()
			found[ref] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return found
}

func (s *ReportQueryService) flag(d targets.Detail) string {
	if d == nil || s.filter == nil {
		return ""
	}
	var tx textExtractor
	d.Accept(&tx)
	if clean, flag := s.filter.FilterContent(tx.text); !clean {
		return flag
	}
	return ""
}

func reporterRef(id uuid.UUID) models.TargetRef {
	return models.TargetRef{Kind: models.KindUser, ID: id.String()}
}

func titleOf(d targets.Detail) string {
	if d == nil {
		return Placeholder
	}
	return d.DisplayTitle()
}

// textExtractor pulls user-written text out of a target for content screening.
type textExtractor struct {
	text string
}

func (x *textExtractor) VisitUser(d *targets.UserDetail)       { x.text = d.Nickname }
func (x *textExtractor) VisitNovel(d *targets.NovelDetail)     { x.text = d.Title }
func (x *textExtractor) VisitChapter(d *targets.ChapterDetail) { x.text = d.Title }
func (x *textExtractor) VisitComment(d *targets.CommentDetail) { x.text = d.Content }

func (x *textExtractor) VisitForumPost(d *targets.ForumPostDetail) {
	x.text = d.Title + "\n" + d.Content
}

func (x *textExtractor) VisitForumComment(d *targets.ForumCommentDetail) {
	x.text = d.Content
}
