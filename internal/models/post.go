package models

import (
	"time"

	"gorm.io/datatypes"
)

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusPending     PostStatus = "pending"
	PostStatusPublished   PostStatus = "published"
	PostStatusRejected    PostStatus = "rejected"
	PostStatusFlagged     PostStatus = "flagged"
	PostStatusDeleted     PostStatus = "deleted"
	PostStatusUnderReview PostStatus = "under_review"
)

// ModerationStatus records who last judged a post and how.
type ModerationStatus string

const (
	ModerationNotChecked        ModerationStatus = "not_checked"
	ModerationAIApproved        ModerationStatus = "ai_approved"
	ModerationAIFlagged         ModerationStatus = "ai_flagged"
	ModerationModeratorApproved ModerationStatus = "moderator_approved"
	ModerationModeratorRejected ModerationStatus = "moderator_rejected"
)

// Visibility controls the audience of a post.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityFriends || v == VisibilityPrivate
}

// ContentType is derived from the attached media.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
	ContentTypeMixed ContentType = "mixed"
)

// MediaType distinguishes image and video attachments.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Valid reports whether m is image or video.
func (m MediaType) Valid() bool {
	return m == MediaTypeImage || m == MediaTypeVideo
}

// Decision is a moderator verdict on a post.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionFlag    Decision = "flag"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject || d == DecisionFlag
}

// Post is a unit of user content. Feeds only show rows with status published
// and IsDeleted false.
type Post struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	UserID            uint                        `gorm:"not null;index" json:"user_id"`
	Caption           string                      `gorm:"type:text" json:"caption"`
	ContentType       ContentType                 `gorm:"size:10;default:'text'" json:"content_type"`
	Status            PostStatus                  `gorm:"size:20;default:'pending';index" json:"status"`
	ModerationStatus  ModerationStatus            `gorm:"size:30;default:'not_checked'" json:"moderation_status"`
	AIConfidenceScore *float64                    `json:"ai_confidence_score,omitempty"`
	AIFlagReasons     datatypes.JSONSlice[string] `json:"ai_flag_reasons,omitempty"`
	AIAnalyzedAt      *time.Time                  `json:"ai_analyzed_at,omitempty"`
	ModeratorID       *uint                       `json:"moderator_id,omitempty"`
	ModeratorDecision *Decision                   `gorm:"size:10" json:"moderator_decision,omitempty"`
	ModeratorReason   string                      `gorm:"type:text" json:"moderator_reason,omitempty"`
	ModeratedAt       *time.Time                  `json:"moderated_at,omitempty"`
	LikeCount         int                         `gorm:"default:0" json:"like_count"`
	CommentCount      int                         `gorm:"default:0" json:"comment_count"`
	ShareCount        int                         `gorm:"default:0" json:"share_count"`
	ReportCount       int                         `gorm:"default:0" json:"report_count"`
	Visibility        Visibility                  `gorm:"size:10;default:'public'" json:"visibility"`
	IsDeleted         bool                        `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt         *time.Time                  `json:"deleted_at,omitempty"`
	PermanentDeleteAt *time.Time                  `json:"permanent_delete_at,omitempty"`
	PublishedAt       *time.Time                  `json:"published_at,omitempty"`
	CreatedAt         time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at"`

	Author User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author"`
	Media  []PostMedia `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"media"`
	// Liked is computed per viewer and never persisted.
	Liked bool `gorm:"-" json:"liked"`
}

// Visible reports whether the post may appear in feeds.
func (p *Post) Visible() bool {
	return p.Status == PostStatusPublished && !p.IsDeleted
}

// DeriveContentType returns text for no media, the media's own type for a
// single item, and mixed otherwise.
func DeriveContentType(media []PostMedia) ContentType {
	switch len(media) {
	case 0:
		return ContentTypeText
	case 1:
		return ContentType(media[0].MediaType)
	default:
		return ContentTypeMixed
	}
}

// PostMedia is an ordered attachment owned by one post.
type PostMedia struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	PostID            uint                        `gorm:"not null;index" json:"post_id"`
	MediaType         MediaType                   `gorm:"size:10;not null" json:"media_type"`
	MediaURL          string                      `gorm:"type:text;not null" json:"media_url"`
	ThumbnailURL      string                      `gorm:"type:text" json:"thumbnail_url,omitempty"`
	Width             *int                        `json:"width,omitempty"`
	Height            *int                        `json:"height,omitempty"`
	Duration          *int                        `json:"duration,omitempty"`
	FileSize          *int64                      `json:"file_size,omitempty"`
	AINSFWScore       *float64                    `gorm:"column:ai_nsfw_score" json:"ai_nsfw_score,omitempty"`
	AIViolenceScore   *float64                    `json:"ai_violence_score,omitempty"`
	AITextExtracted   string                      `gorm:"type:text" json:"ai_text_extracted,omitempty"`
	AIObjectsDetected datatypes.JSONSlice[string] `json:"ai_objects_detected,omitempty"`
	DisplayOrder      int                         `gorm:"default:0" json:"display_order"`
	CreatedAt         time.Time                   `json:"created_at"`
}

// Share is a re-post of a published post with an optional caption.
type Share struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	PostID        uint      `gorm:"not null;index" json:"post_id"`
	SharedCaption string    `gorm:"type:text" json:"shared_caption,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}
