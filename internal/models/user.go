// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account on the Inkwell platform. PasswordHash is
// write-only: it never leaves the API and is replaced by re-hashing on
// password change. Accounts are soft-deleted by clearing IsActive.
type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	FullName       string    `gorm:"size:100" json:"full_name,omitempty"`
	Bio            string    `gorm:"type:text" json:"bio,omitempty"`
	ProfilePicture string    `gorm:"size:255" json:"profile_picture,omitempty"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	IsSuperuser    bool      `gorm:"default:false" json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Posts    []Post    `gorm:"foreignKey:AuthorID" json:"posts,omitempty"`
	Comments []Comment `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
