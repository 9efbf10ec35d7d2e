package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The types below belong to the catalog, comment and forum domains. Moderation
// only reads them and, for comments and forum entries, hides or deletes them.

type Novel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"authorId"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Synopsis  string         `gorm:"type:text" json:"synopsis"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (n *Novel) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

type Chapter struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	NovelID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"novelId"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"authorId"`
	Number    int            `gorm:"not null" json:"number"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Comment is a reader comment on a novel or chapter.
type Comment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	NovelID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"novelId"`
	ChapterID *uuid.UUID     `gorm:"type:uuid;index" json:"chapterId,omitempty"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"authorId"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Hidden    bool           `gorm:"not null;default:false" json:"hidden"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type ForumPost struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"authorId"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Hidden    bool           `gorm:"not null;default:false" json:"hidden"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *ForumPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type ForumComment struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ForumPostID uuid.UUID      `gorm:"type:uuid;not null;index" json:"forumPostId"`
	AuthorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"authorId"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	Hidden      bool           `gorm:"not null;default:false" json:"hidden"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *ForumComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
