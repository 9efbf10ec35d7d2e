package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/targets"
	"github.com/google/uuid"
)

const maxReasonLen = 500

var ErrTargetMissing = errors.New("reported target does not exist")

// ReportService files new reports on behalf of readers.
type ReportService struct {
	reports  ReportStore
	registry TargetRegistry
}

func NewReportService(reports ReportStore, registry TargetRegistry) *ReportService {
	return &ReportService{reports: reports, registry: registry}
}

// CreateReport records a pending report. The target must exist right now.
func (s *ReportService) CreateReport(ctx context.Context, reporterID uuid.UUID, target models.TargetRef, reason string) (*models.Report, error) {
	if _, err := models.NewTargetRef(target.Kind, target.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLen {
		return nil, fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidReport, maxReasonLen)
	}

	if _, err := s.registry.Resolve(ctx, target); err != nil {
		if errors.Is(err, targets.ErrTargetNotFound) {
			return nil, ErrTargetMissing
		}
		return nil, fmt.Errorf("check target: %w", err)
	}

	report := &models.Report{
		ID:         uuid.New(),
		ReporterID: reporterID,
		Target:     target,
		Reason:     reason,
		Status:     models.StatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}
