package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
)

var (
	ErrReportNotFound       = errors.New("report not found")
	ErrAlreadyResolved      = errors.New("report already resolved")
	ErrResolutionInProgress = errors.New("report is being resolved by another moderator")
	ErrInvalidAction        = errors.New("action not applicable to report")
	ErrTargetActionFailed   = errors.New("target action failed")
	ErrTimeout              = errors.New("target action timed out")
	ErrInvalidReport        = errors.New("invalid report")
)

// AlreadyResolvedError carries the status a report already reached.
type AlreadyResolvedError struct {
	Status models.ReportStatus
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("report already resolved as %s", e.Status)
}

func (e *AlreadyResolvedError) Is(target error) bool {
	return target == ErrAlreadyResolved
}

// TargetActionError reports a failed destroy or author sanction. It matches
// ErrTargetActionFailed, and also ErrTimeout when the step deadline fired.
type TargetActionError struct {
	Target models.TargetRef
	Op     string
	Err    error
}

func (e *TargetActionError) Error() string {
	return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Target, e.Err)
}

func (e *TargetActionError) Unwrap() error {
	return e.Err
}

func (e *TargetActionError) Is(target error) bool {
	switch target {
	case ErrTargetActionFailed:
		return true
	case ErrTimeout:
		return e.Timeout()
	}
	return false
}

func (e *TargetActionError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
