package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment represents a comment on a post. Comments form a forest per
// post: ParentID is nil for root comments and otherwise points at a
// comment on the same post. The parent foreign key cascades on delete,
// so removing a comment removes its entire reply subtree.
//
// Comments are hard-deleted. A soft-delete column would leave the
// cascade constraint inert and allow replies to outlive their parent.
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	PostID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_comments_post_parent" json:"post_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index:idx_comments_post_parent" json:"parent_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User    User      `gorm:"foreignKey:UserID" json:"user"`
	Parent  *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Replies []Comment `gorm:"foreignKey:ParentID" json:"replies"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
