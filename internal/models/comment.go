package models

import "time"

// Comment belongs to a post. A non-nil ParentCommentID makes it a reply;
// replies are fetched flat, one level deep.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id,omitempty"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	MediaURL        string    `gorm:"size:500" json:"media_url,omitempty"`
	MediaType       MediaType `gorm:"size:10" json:"media_type,omitempty"`
	IsBlocked       bool      `gorm:"default:false" json:"is_blocked"`
	BlockReason     string    `gorm:"type:text" json:"block_reason,omitempty"`
	AIFlagged       bool      `gorm:"default:false" json:"ai_flagged"`
	LikeCount       int       `gorm:"default:0" json:"like_count"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Author User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author"`
	Post   *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Parent *Comment `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE" json:"-"`
	// ReplyCount is filled by list queries.
	ReplyCount int64 `gorm:"-" json:"reply_count"`
	Liked      bool  `gorm:"-" json:"liked"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}

// LikeTarget identifies the kind of row a Like points at.
type LikeTarget string

const (
	LikeTargetPost    LikeTarget = "post"
	LikeTargetComment LikeTarget = "comment"
)

// Like is keyed by (user_id, target_type, target_id). Presence means liked.
type Like struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_unique_like" json:"user_id"`
	TargetType LikeTarget `gorm:"size:10;not null;uniqueIndex:idx_unique_like;index:idx_like_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_unique_like;index:idx_like_target" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}
