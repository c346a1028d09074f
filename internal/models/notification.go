package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifyVoteReceived  NotificationType = "vote_received"
	NotifyCommentAdded  NotificationType = "comment_added"
	NotifyCommentReply  NotificationType = "comment_reply"
	NotifyStatusChanged NotificationType = "status_changed"
	NotifyAdminReply    NotificationType = "admin_reply"
	NotifyBadgeEarned   NotificationType = "badge_earned"
)

// Notification is an inbox entry. Only its recipient reads or marks it.
type Notification struct {
	ID          string           `gorm:"primaryKey" json:"id"`
	RecipientID string           `gorm:"not null;index:idx_notification_inbox,priority:1" json:"recipient"`
	SenderID    *string          `json:"sender,omitempty"`
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title       string           `gorm:"not null" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`
	TargetType  string           `gorm:"type:varchar(20)" json:"targetType,omitempty"`
	TargetID    string           `json:"targetId,omitempty"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notification_inbox,priority:2" json:"isRead"`
	ReadAt      *time.Time       `json:"readAt,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
