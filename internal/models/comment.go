package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CommentEdit is one previous revision of a comment's content.
type CommentEdit struct {
	Content  string    `json:"content"`
	EditedAt time.Time `json:"editedAt"`
}

// Comment belongs to exactly one complaint. Replies point at their parent via
// ParentID; children are always queried, never stored on the parent.
type Comment struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	ComplaintID string  `gorm:"not null;index" json:"complaintId"`
	AuthorID    string  `gorm:"not null;index" json:"authorId"`
	ParentID    *string `gorm:"index" json:"parentId,omitempty"`
	Content     string  `gorm:"type:text;not null" json:"content"`

	Likes    int `gorm:"not null;default:0" json:"likes"`
	Dislikes int `gorm:"not null;default:0" json:"dislikes"`

	IsDeleted   bool                             `gorm:"not null;default:false;index" json:"isDeleted"`
	EditedAt    *time.Time                       `json:"editedAt,omitempty"`
	EditHistory datatypes.JSONSlice[CommentEdit] `json:"editHistory,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsReply reports whether the comment hangs under another comment.
func (c *Comment) IsReply() bool { return c.ParentID != nil && *c.ParentID != "" }

// Redacted returns a copy safe to show after a soft delete.
func (c Comment) Redacted() Comment {
	if c.IsDeleted {
		c.Content = ""
		c.EditHistory = nil
	}
	return c
}
