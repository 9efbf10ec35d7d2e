package targets

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
)

var (
	ErrTargetNotFound = errors.New("target not found")
	ErrUnknownKind    = errors.New("unknown target kind")
)

type UserAccessor interface {
	GetUser(ctx context.Context, id string) (*UserDetail, error)
}

type NovelAccessor interface {
	GetNovel(ctx context.Context, id string) (*NovelDetail, error)
}

type ChapterAccessor interface {
	GetChapter(ctx context.Context, id string) (*ChapterDetail, error)
}

// CommentStore reads and removes reader comments. Delete and Hide return
// ErrTargetNotFound when the comment is already gone.
type CommentStore interface {
	GetComment(ctx context.Context, id string) (*CommentDetail, error)
	DeleteComment(ctx context.Context, id string) error
	HideComment(ctx context.Context, id string) error
}

type ForumPostStore interface {
	GetForumPost(ctx context.Context, id string) (*ForumPostDetail, error)
	DeleteForumPost(ctx context.Context, id string) error
	HideForumPost(ctx context.Context, id string) error
}

type ForumCommentStore interface {
	GetForumComment(ctx context.Context, id string) (*ForumCommentDetail, error)
	DeleteForumComment(ctx context.Context, id string) error
	HideForumComment(ctx context.Context, id string) error
}

// Accessors bundles the owning domains' services. Every field is required.
type Accessors struct {
	Users         UserAccessor
	Novels        NovelAccessor
	Chapters      ChapterAccessor
	Comments      CommentStore
	ForumPosts    ForumPostStore
	ForumComments ForumCommentStore
}

// DestroyableKind is the subset of target kinds that moderation may delete or
// hide inline. User, novel and chapter moderation happens on their own screens.
// Values come only from the package vars or Destroyable.
type DestroyableKind struct {
	kind models.ReportTargetKind
}

var (
	DestroyComment      = DestroyableKind{models.KindComment}
	DestroyForumPost    = DestroyableKind{models.KindForumPost}
	DestroyForumComment = DestroyableKind{models.KindForumComment}
)

// Kind returns the report target kind this value narrows.
func (k DestroyableKind) Kind() models.ReportTargetKind { return k.kind }

func (k DestroyableKind) String() string { return string(k.kind) }

// Destroyable narrows kind to a DestroyableKind.
func Destroyable(kind models.ReportTargetKind) (DestroyableKind, bool) {
	switch kind {
	case models.KindComment:
		return DestroyComment, true
	case models.KindForumPost:
		return DestroyForumPost, true
	case models.KindForumComment:
		return DestroyForumComment, true
	}
	return DestroyableKind{}, false
}

// DestroyMode selects between removing a target and hiding it from readers.
type DestroyMode int

const (
	ModeDelete DestroyMode = iota
	ModeHide
)

func (m DestroyMode) String() string {
	if m == ModeHide {
		return "hide"
	}
	return "delete"
}

type resolveFunc func(ctx context.Context, id string) (Detail, error)

type destroyer struct {
	delete func(ctx context.Context, id string) error
	hide   func(ctx context.Context, id string) error
}

// Registry maps a target reference to its owning domain.
type Registry struct {
	resolvers  map[models.ReportTargetKind]resolveFunc
	destroyers map[DestroyableKind]destroyer
}

func NewRegistry(a Accessors) *Registry {
	return &Registry{
		resolvers: map[models.ReportTargetKind]resolveFunc{
			models.KindUser: func(ctx context.Context, id string) (Detail, error) {
				return asDetail(a.Users.GetUser(ctx, id))
			},
			models.KindNovel: func(ctx context.Context, id string) (Detail, error) {
				return asDetail(a.Novels.GetNovel(ctx, id))
			},
			models.KindChapter: func(ctx context.Context, id string) (Detail, error) {
				return asDetail(a.Chapters.GetChapter(ctx, id))
			},
			models.KindComment: func(ctx context.Context, id string) (Detail, error) {
				return asDetail(a.Comments.GetComment(ctx, id))
			},
			models.KindForumPost: func(ctx context.Context, id string) (Detail, error) {
				return asDetail(a.ForumPosts.GetForumPost(ctx, id))
			},
			models.KindForumComment: func(ctx context.Context, id string) (Detail, error) {
				return asDetail(a.ForumComments.GetForumComment(ctx, id))
			},
		},
		destroyers: map[DestroyableKind]destroyer{
			DestroyComment:      {delete: a.Comments.DeleteComment, hide: a.Comments.HideComment},
			DestroyForumPost:    {delete: a.ForumPosts.DeleteForumPost, hide: a.ForumPosts.HideForumPost},
			DestroyForumComment: {delete: a.ForumComments.DeleteForumComment, hide: a.ForumComments.HideForumComment},
		},
	}
}

// asDetail avoids returning a typed nil pointer inside a non-nil interface.
func asDetail[T Detail](d T, err error) (Detail, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve loads the detail view of ref. Missing targets yield ErrTargetNotFound.
func (r *Registry) Resolve(ctx context.Context, ref models.TargetRef) (Detail, error) {
	resolve, ok := r.resolvers[ref.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, ref.Kind)
	}
	d, err := resolve(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return d, nil
}

// Destroy deletes or hides a target. A target that is already gone counts as
// destroyed, so repeating the call is safe.
func (r *Registry) Destroy(ctx context.Context, kind DestroyableKind, id string, mode DestroyMode) error {
	d, ok := r.destroyers[kind]
	if !ok {
		// Only the zero value gets here.
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind.String())
	}
	op := d.delete
	if mode == ModeHide {
		op = d.hide
	}
	if err := op(ctx, id); err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			return nil
		}
		return fmt.Errorf("%s %s:%s: %w", mode, kind, id, err)
	}
	return nil
}
