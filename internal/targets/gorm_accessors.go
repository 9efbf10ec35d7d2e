package targets

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccessors reads the owning domains' tables directly. It implements every
// accessor interface in this package.
type GormAccessors struct {
	db *gorm.DB
}

func NewGormAccessors(db *gorm.DB) *GormAccessors {
	return &GormAccessors{db: db}
}

// Accessors wires g into every slot of an Accessors bundle.
func (g *GormAccessors) Accessors() Accessors {
	return Accessors{
		Users:         g,
		Novels:        g,
		Chapters:      g,
		Comments:      g,
		ForumPosts:    g,
		ForumComments: g,
	}
}

func (g *GormAccessors) first(ctx context.Context, dest any, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrTargetNotFound
	}
	if err := g.db.WithContext(ctx).Where("id = ?", uid).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTargetNotFound
		}
		return err
	}
	return nil
}

func (g *GormAccessors) remove(ctx context.Context, model any, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrTargetNotFound
	}
	result := g.db.WithContext(ctx).Where("id = ?", uid).Delete(model)
	if result.Error != nil {
		return fmt.Errorf("failed to delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func (g *GormAccessors) hide(ctx context.Context, model any, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrTargetNotFound
	}
	result := g.db.WithContext(ctx).Model(model).Where("id = ?", uid).Update("hidden", true)
	if result.Error != nil {
		return fmt.Errorf("failed to hide: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTargetNotFound
	}
	return nil
}

func (g *GormAccessors) GetUser(ctx context.Context, id string) (*UserDetail, error) {
	var u models.User
	if err := g.first(ctx, &u, id); err != nil {
		return nil, err
	}
	return &UserDetail{ID: u.ID, Nickname: u.Nickname, Email: u.Email, Status: u.Status}, nil
}

func (g *GormAccessors) GetNovel(ctx context.Context, id string) (*NovelDetail, error) {
	var n models.Novel
	if err := g.first(ctx, &n, id); err != nil {
		return nil, err
	}
	return &NovelDetail{ID: n.ID, AuthorID: n.AuthorID, Title: n.Title}, nil
}

func (g *GormAccessors) GetChapter(ctx context.Context, id string) (*ChapterDetail, error) {
	var c models.Chapter
	if err := g.first(ctx, &c, id); err != nil {
		return nil, err
	}
	return &ChapterDetail{ID: c.ID, NovelID: c.NovelID, AuthorID: c.AuthorID, Number: c.Number, Title: c.Title}, nil
}

func (g *GormAccessors) GetComment(ctx context.Context, id string) (*CommentDetail, error) {
	var c models.Comment
	if err := g.first(ctx, &c, id); err != nil {
		return nil, err
	}
	return &CommentDetail{ID: c.ID, NovelID: c.NovelID, AuthorID: c.AuthorID, Content: c.Content, Hidden: c.Hidden}, nil
}

func (g *GormAccessors) DeleteComment(ctx context.Context, id string) error {
	return g.remove(ctx, &models.Comment{}, id)
}

func (g *GormAccessors) HideComment(ctx context.Context, id string) error {
	return g.hide(ctx, &models.Comment{}, id)
}

func (g *GormAccessors) GetForumPost(ctx context.Context, id string) (*ForumPostDetail, error) {
	var p models.ForumPost
	if err := g.first(ctx, &p, id); err != nil {
		return nil, err
	}
	return &ForumPostDetail{ID: p.ID, AuthorID: p.AuthorID, Title: p.Title, Content: p.Content, Hidden: p.Hidden}, nil
}

func (g *GormAccessors) DeleteForumPost(ctx context.Context, id string) error {
	return g.remove(ctx, &models.ForumPost{}, id)
}

func (g *GormAccessors) HideForumPost(ctx context.Context, id string) error {
	return g.hide(ctx, &models.ForumPost{}, id)
}

func (g *GormAccessors) GetForumComment(ctx context.Context, id string) (*ForumCommentDetail, error) {
	var c models.ForumComment
	if err := g.first(ctx, &c, id); err != nil {
		return nil, err
	}
	return &ForumCommentDetail{ID: c.ID, ForumPostID: c.ForumPostID, AuthorID: c.AuthorID, Content: c.Content, Hidden: c.Hidden}, nil
}

func (g *GormAccessors) DeleteForumComment(ctx context.Context, id string) error {
	return g.remove(ctx, &models.ForumComment{}, id)
}

func (g *GormAccessors) HideForumComment(ctx context.Context, id string) error {
	return g.hide(ctx, &models.ForumComment{}, id)
}
