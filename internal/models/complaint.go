package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusRejected   ComplaintStatus = "rejected"
	StatusClosed     ComplaintStatus = "closed"
)

// ParseComplaintStatus validates a status coming from a client.
func ParseComplaintStatus(s string) (ComplaintStatus, bool) {
	switch st := ComplaintStatus(s); st {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected, StatusClosed:
		return st, true
	}
	return "", false
}

// Attachment describes a file the upload service already stored. The backend
// never sees the bytes.
type Attachment struct {
	URL          string `json:"url"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	OriginalName string `json:"originalName"`
}

// Complaint is an issue submitted by a student. Likes and Dislikes are derived
// from the vote ledger and rewritten after every vote.
type Complaint struct {
	ID          string                          `gorm:"primaryKey" json:"id"`
	Title       string                          `gorm:"not null" json:"title"`
	Description string                          `gorm:"type:text;not null" json:"description"`
	Category    string                          `gorm:"index" json:"category"`
	Location    string                          `json:"location,omitempty"`
	Tags        Tags                            `json:"tags"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments"`
	Status      ComplaintStatus                 `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`

	Likes    int `gorm:"not null;default:0" json:"likes"`
	Dislikes int `gorm:"not null;default:0" json:"dislikes"`

	SubmittedByID string `gorm:"not null;index" json:"submittedBy"`
	SubmittedBy   *User  `gorm:"foreignKey:SubmittedByID" json:"submitter,omitempty"`

	AdminReply string     `gorm:"type:text" json:"adminReply,omitempty"`
	RepliedAt  *time.Time `json:"repliedAt,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return
}
