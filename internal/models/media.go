package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media is an uploaded file stored in the object store. Each item
// belongs to exactly one of a user or a post, never both.
type Media struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FileName  string     `gorm:"size:255;not null" json:"file_name"`
	FilePath  string     `gorm:"size:255;not null" json:"file_path"`
	MimeType  string     `gorm:"size:100;not null" json:"mime_type"`
	PostID    *uuid.UUID `gorm:"type:uuid;index" json:"post_id,omitempty"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Post *Post `gorm:"foreignKey:PostID" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
