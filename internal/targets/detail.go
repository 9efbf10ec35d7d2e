package targets

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/google/uuid"
)

// Detail is the kind-specific view of a reported entity. The set of
// implementations is closed; use Accept with a Visitor to branch on it.
type Detail interface {
	Kind() models.ReportTargetKind
	TargetID() string
	DisplayTitle() string
	// Author is the user answerable for the target. For a user target it is the user.
	Author() uuid.UUID
	Accept(v Visitor)
}

// Visitor has one method per target kind. Adding a kind adds a method here,
// which breaks every visitor until it handles the new kind.
type Visitor interface {
	VisitUser(d *UserDetail)
	VisitNovel(d *NovelDetail)
	VisitChapter(d *ChapterDetail)
	VisitComment(d *CommentDetail)
	VisitForumPost(d *ForumPostDetail)
	VisitForumComment(d *ForumCommentDetail)
}

type UserDetail struct {
	ID       uuid.UUID         `json:"id"`
	Nickname string            `json:"nickname"`
	Email    string            `json:"email"`
	Status   models.UserStatus `json:"status"`
}

func (d *UserDetail) Kind() models.ReportTargetKind { return models.KindUser }
func (d *UserDetail) TargetID() string              { return d.ID.String() }
func (d *UserDetail) Author() uuid.UUID             { return d.ID }
func (d *UserDetail) Accept(v Visitor)              { v.VisitUser(d) }

func (d *UserDetail) DisplayTitle() string {
	if d.Nickname != "" {
		return d.Nickname
	}
	return d.Email
}

type NovelDetail struct {
	ID       uuid.UUID `json:"id"`
	AuthorID uuid.UUID `json:"authorId"`
	Title    string    `json:"title"`
}

func (d *NovelDetail) Kind() models.ReportTargetKind { return models.KindNovel }
func (d *NovelDetail) TargetID() string              { return d.ID.String() }
func (d *NovelDetail) DisplayTitle() string          { return d.Title }
func (d *NovelDetail) Author() uuid.UUID             { return d.AuthorID }
func (d *NovelDetail) Accept(v Visitor)              { v.VisitNovel(d) }

type ChapterDetail struct {
	ID       uuid.UUID `json:"id"`
	NovelID  uuid.UUID `json:"novelId"`
	AuthorID uuid.UUID `json:"authorId"`
	Number   int       `json:"number"`
	Title    string    `json:"title"`
}

func (d *ChapterDetail) Kind() models.ReportTargetKind { return models.KindChapter }
func (d *ChapterDetail) TargetID() string              { return d.ID.String() }
func (d *ChapterDetail) Author() uuid.UUID             { return d.AuthorID }
func (d *ChapterDetail) Accept(v Visitor)              { v.VisitChapter(d) }

func (d *ChapterDetail) DisplayTitle() string {
	return fmt.Sprintf("Ch. %d %s", d.Number, d.Title)
}

type CommentDetail struct {
	ID       uuid.UUID `json:"id"`
	NovelID  uuid.UUID `json:"novelId"`
	AuthorID uuid.UUID `json:"authorId"`
	Content  string    `json:"content"`
	Hidden   bool      `json:"hidden"`
}

func (d *CommentDetail) Kind() models.ReportTargetKind { return models.KindComment }
func (d *CommentDetail) TargetID() string              { return d.ID.String() }
func (d *CommentDetail) DisplayTitle() string          { return Snippet(d.Content) }
func (d *CommentDetail) Author() uuid.UUID             { return d.AuthorID }
func (d *CommentDetail) Accept(v Visitor)              { v.VisitComment(d) }

type ForumPostDetail struct {
	ID       uuid.UUID `json:"id"`
	AuthorID uuid.UUID `json:"authorId"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Hidden   bool      `json:"hidden"`
}

func (d *ForumPostDetail) Kind() models.ReportTargetKind { return models.KindForumPost }
func (d *ForumPostDetail) TargetID() string              { return d.ID.String() }
func (d *ForumPostDetail) DisplayTitle() string          { return d.Title }
func (d *ForumPostDetail) Author() uuid.UUID             { return d.AuthorID }
func (d *ForumPostDetail) Accept(v Visitor)              { v.VisitForumPost(d) }

type ForumCommentDetail struct {
	ID          uuid.UUID `json:"id"`
	ForumPostID uuid.UUID `json:"forumPostId"`
	AuthorID    uuid.UUID `json:"authorId"`
	Content     string    `json:"content"`
	Hidden      bool      `json:"hidden"`
}

func (d *ForumCommentDetail) Kind() models.ReportTargetKind { return models.KindForumComment }
func (d *ForumCommentDetail) TargetID() string              { return d.ID.String() }
func (d *ForumCommentDetail) DisplayTitle() string          { return Snippet(d.Content) }
func (d *ForumCommentDetail) Author() uuid.UUID             { return d.AuthorID }
func (d *ForumCommentDetail) Accept(v Visitor)              { v.VisitForumComment(d) }

const snippetLen = 60

// Snippet shortens free text for list views, cutting on rune boundaries.
func Snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen]) + "…"
}
