package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportTargetKind names the collection a report points into.
type ReportTargetKind string

const (
	KindUser         ReportTargetKind = "user"
	KindNovel        ReportTargetKind = "novel"
	KindChapter      ReportTargetKind = "chapter"
	KindComment      ReportTargetKind = "comment"
	KindForumPost    ReportTargetKind = "forum_post"
	KindForumComment ReportTargetKind = "forum_comment"
)

// AllKinds lists every target kind in display order.
var AllKinds = []ReportTargetKind{
	KindUser, KindNovel, KindChapter, KindComment, KindForumPost, KindForumComment,
}

// IsValid reports whether k is one of the known target kinds.
func (k ReportTargetKind) IsValid() bool {
	switch k {
	case KindUser, KindNovel, KindChapter, KindComment, KindForumPost, KindForumComment:
		return true
	}
	return false
}

// ParseKind validates a raw kind string.
func ParseKind(s string) (ReportTargetKind, error) {
	k := ReportTargetKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid report type %q", s)
	}
	return k, nil
}

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusResolved ReportStatus = "resolved"
	StatusRejected ReportStatus = "rejected"
	StatusIgnored  ReportStatus = "ignored"
)

// AllStatuses lists every status in display order.
var AllStatuses = []ReportStatus{StatusPending, StatusResolved, StatusRejected, StatusIgnored}

func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusRejected, StatusIgnored:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ReportStatus) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusRejected, StatusIgnored:
		return true
	}
	return false
}

func ParseStatus(s string) (ReportStatus, error) {
	st := ReportStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid report status %q", s)
	}
	return st, nil
}

func (s *ReportStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ModerationAction is what a moderator does to the reported target.
type ModerationAction string

const (
	ActionNone           ModerationAction = "none"
	ActionHideResource   ModerationAction = "hide_resource"
	ActionDeleteResource ModerationAction = "delete_resource"
	ActionWarnAuthor     ModerationAction = "warn_author"
	ActionSuspendAuthor  ModerationAction = "suspend_author"
	ActionBanAuthor      ModerationAction = "ban_author"
)

// AllActions lists every moderation action.
var AllActions = []ModerationAction{
	ActionNone, ActionHideResource, ActionDeleteResource,
	ActionWarnAuthor, ActionSuspendAuthor, ActionBanAuthor,
}

func (a ModerationAction) IsValid() bool {
	switch a {
	case ActionNone, ActionHideResource, ActionDeleteResource,
		ActionWarnAuthor, ActionSuspendAuthor, ActionBanAuthor:
		return true
	}
	return false
}

func ParseAction(s string) (ModerationAction, error) {
	if s == "" {
		return ActionNone, nil
	}
	a := ModerationAction(s)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid moderation action %q", s)
	}
	return a, nil
}

// targetIDFields maps each kind to the JSON field the admin UI reads its id from.
var targetIDFields = map[ReportTargetKind]string{
	KindUser:         "memberId",
	KindNovel:        "novelId",
	KindChapter:      "chapterId",
	KindComment:      "commentId",
	KindForumPost:    "forumPostId",
	KindForumComment: "forumCommentId",
}

var ErrInvalidTargetRef = errors.New("invalid report target")

// TargetRef identifies the single entity a report points at.
type TargetRef struct {
	Kind ReportTargetKind `gorm:"column:target_kind;not null;size:20;index:idx_reports_target,priority:1"`
	ID   string           `gorm:"column:target_id;not null;size:64;index:idx_reports_target,priority:2"`
}

func NewTargetRef(kind ReportTargetKind, id string) (TargetRef, error) {
	if !kind.IsValid() || id == "" {
		return TargetRef{}, ErrInvalidTargetRef
	}
	return TargetRef{Kind: kind, ID: id}, nil
}

func (t TargetRef) String() string {
	return string(t.Kind) + ":" + t.ID
}

// MarshalJSON writes {"type": kind, "<kindField>": id}.
func (t TargetRef) MarshalJSON() ([]byte, error) {
	field, ok := targetIDFields[t.Kind]
	if !ok {
		return nil, ErrInvalidTargetRef
	}
	return json.Marshal(map[string]string{
		"type": string(t.Kind),
		field:  t.ID,
	})
}

// UnmarshalJSON requires a valid type and exactly the id field that type implies.
func (t *TargetRef) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	kindStr, _ := raw["type"].(string)
	kind, err := ParseKind(kindStr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTargetRef, err)
	}

	var id string
	for k, field := range targetIDFields {
		v, present := raw[field]
		if !present || v == nil || v == "" {
			continue
		}
		if k != kind {
			return fmt.Errorf("%w: %s set on a %s report", ErrInvalidTargetRef, field, kind)
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidTargetRef, field)
		}
		id = s
	}
	if id == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidTargetRef, targetIDFields[kind])
	}

	*t = TargetRef{Kind: kind, ID: id}
	return nil
}

// Report is an end-user complaint about one target. Reports are never deleted.
type Report struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"reporterId"`
	Target        TargetRef        `gorm:"embedded" json:"target"`
	Reason        string           `gorm:"size:500" json:"reason,omitempty"`
	Status        ReportStatus     `gorm:"not null;default:'pending';size:20;index" json:"status"`
	Action        ModerationAction `gorm:"size:30" json:"action,omitempty"`
	ModeratorNote string           `gorm:"size:1000" json:"moderatorNote,omitempty"`
	ModeratorID   string           `gorm:"size:64" json:"moderatorId,omitempty"`
	CreatedAt     time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

func (Report) TableName() string {
	return "reports"
}
