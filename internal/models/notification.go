package models

import "time"

// NotificationType enumerates the events users are told about.
type NotificationType string

const (
	NotifyLike             NotificationType = "like"
	NotifyComment          NotificationType = "comment"
	NotifyShare            NotificationType = "share"
	NotifyFriendRequest    NotificationType = "friend_request"
	NotifyFriendAccept     NotificationType = "friend_accept"
	NotifyViolationWarning NotificationType = "violation_warning"
	NotifyPostApproved     NotificationType = "post_approved"
	NotifyPostRejected     NotificationType = "post_rejected"
	NotifyAppealResult     NotificationType = "appeal_result"
)

// Notification is append-only apart from IsRead, which only moves false to true.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	Type        NotificationType `gorm:"size:20;not null" json:"type"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	RelatedID   *uint            `json:"related_id,omitempty"`
	RelatedType string           `gorm:"size:50" json:"related_type,omitempty"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}
