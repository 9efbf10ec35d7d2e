package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus is the account standing maintained by moderation.
type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserBanned    UserStatus = "banned"
)

// User is a member of the reading site (readers and authors alike).
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email          string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Nickname       string         `gorm:"size:100" json:"nickname"`
	Role           string         `gorm:"size:20;default:'user'" json:"role"`
	Status         UserStatus     `gorm:"size:20;not null;default:'active'" json:"status"`
	SuspendedUntil *time.Time     `json:"suspendedUntil,omitempty"`
	WarningCount   int            `gorm:"not null;default:0" json:"warningCount"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName is what the admin console shows for the user.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Email
}
