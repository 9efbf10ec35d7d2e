package dto

import (
	"encoding/json"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
)

// CreateReportRequest is the reader-facing report body:
// {"type": "comment", "commentId": "...", "reason": "..."}.
type CreateReportRequest struct {
	Target models.TargetRef `json:"-"`
	Reason string           `json:"reason"`
}

func (r *CreateReportRequest) UnmarshalJSON(b []byte) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return err
	}
	var target models.TargetRef
	if err := json.Unmarshal(b, &target); err != nil {
		return err
	}
	r.Target = target
	r.Reason = body.Reason
	return nil
}

type ResolveReportRequest struct {
	Status        string `json:"status"`
	Action        string `json:"action"`
	ModeratorNote string `json:"moderatorNote"`
}

// ErrorResponse is the body of every failed request. Status carries the
// report's existing status on an already-resolved conflict.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Status  string `json:"status,omitempty"`
	Timeout bool   `json:"timeout,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
