package models

import (
	"time"

	"gorm.io/datatypes"
)

// QueueTargetType names the kind of content a queue item references.
type QueueTargetType string

const (
	QueueTargetPost   QueueTargetType = "post"
	QueueTargetAvatar QueueTargetType = "avatar"
	QueueTargetAppeal QueueTargetType = "appeal"
)

// QueueSource records why an item entered the queue.
type QueueSource string

const (
	QueueSourceAIFlagged    QueueSource = "ai_flagged"
	QueueSourceUserReport   QueueSource = "user_report"
	QueueSourceManualReview QueueSource = "manual_review"
	QueueSourceAppeal       QueueSource = "appeal"
)

// QueueStatus is the assignment state of a queue item.
type QueueStatus string

const (
	QueueStatusPending   QueueStatus = "pending"
	QueueStatusLocked    QueueStatus = "locked"
	QueueStatusCompleted QueueStatus = "completed"
)

// Queue priorities. Higher is reviewed first.
const (
	PriorityDefault    = 0
	PriorityUserReport = 3
	PriorityReview     = 5
	PriorityFlag       = 8
	PriorityBlock      = 10
)

// ModerationQueueItem is a single-assignment unit of review work. It
// references content by (TargetType, TargetID) without a foreign key.
type ModerationQueueItem struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	TargetType       QueueTargetType             `gorm:"size:10;not null;index:idx_queue_target" json:"target_type"`
	TargetID         uint                        `gorm:"not null;index:idx_queue_target" json:"target_id"`
	Source           QueueSource                 `gorm:"size:20;not null" json:"source"`
	Priority         int                         `gorm:"default:0;index" json:"priority"`
	AssignedTo       *uint                       `json:"assigned_to,omitempty"`
	CompletedBy      *uint                       `json:"completed_by,omitempty"`
	Status           QueueStatus                 `gorm:"size:10;default:'pending';index" json:"status"`
	AIRecommendation string                      `gorm:"size:10" json:"ai_recommendation,omitempty"`
	AIConfidence     *float64                    `json:"ai_confidence,omitempty"`
	AIDetectedIssues datatypes.JSONSlice[string] `json:"ai_detected_issues,omitempty"`
	LockedAt         *time.Time                  `json:"locked_at,omitempty"`
	CompletedAt      *time.Time                  `json:"completed_at,omitempty"`
	CreatedAt        time.Time                   `gorm:"index" json:"created_at"`

	// Post is attached by listings for post targets.
	Post *Post `gorm:"-" json:"post,omitempty"`
}

// TableName keeps the singular table name used by the schema.
func (ModerationQueueItem) TableName() string {
	return "moderation_queue"
}

// AppealType names the moderation outcome being contested.
type AppealType string

const (
	AppealPostRejection  AppealType = "post_rejection"
	AppealAccountWarning AppealType = "account_warning"
	AppealAccountBan     AppealType = "account_ban"
)

// Valid reports whether t is a known appeal type.
func (t AppealType) Valid() bool {
	return t == AppealPostRejection || t == AppealAccountWarning || t == AppealAccountBan
}

// AppealStatus tracks an appeal through its single review.
type AppealStatus string

const (
	AppealStatusPending     AppealStatus = "pending"
	AppealStatusUnderReview AppealStatus = "under_review"
	AppealStatusApproved    AppealStatus = "approved"
	AppealStatusRejected    AppealStatus = "rejected"
)

// Open reports whether the appeal can still be decided.
func (s AppealStatus) Open() bool {
	return s == AppealStatusPending || s == AppealStatusUnderReview
}

// Appeal asks moderators to reverse a decision. It is decided at most once.
type Appeal struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	UserID            uint                        `gorm:"not null;index" json:"user_id"`
	AppealType        AppealType                  `gorm:"size:20;not null" json:"appeal_type"`
	TargetID          *uint                       `json:"target_id,omitempty"`
	Reason            string                      `gorm:"type:text;not null" json:"reason"`
	EvidenceURLs      datatypes.JSONSlice[string] `json:"evidence_urls,omitempty"`
	Status            AppealStatus                `gorm:"size:20;default:'pending';index" json:"status"`
	ReviewedBy        *uint                       `json:"reviewed_by,omitempty"`
	ModeratorDecision string                      `gorm:"type:text" json:"moderator_decision,omitempty"`
	ReviewedAt        *time.Time                  `json:"reviewed_at,omitempty"`
	CreatedAt         time.Time                   `gorm:"index" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// ViolationType classifies a rule violation.
type ViolationType string

const (
	ViolationSpam       ViolationType = "spam"
	ViolationHateSpeech ViolationType = "hate_speech"
	ViolationNudity     ViolationType = "nudity"
	ViolationViolence   ViolationType = "violence"
	ViolationScam       ViolationType = "scam"
	ViolationDeepfake   ViolationType = "deepfake"
	ViolationOther      ViolationType = "other"
)

// Valid reports whether t is a known violation type.
func (t ViolationType) Valid() bool {
	switch t {
	case ViolationSpam, ViolationHateSpeech, ViolationNudity, ViolationViolence,
		ViolationScam, ViolationDeepfake, ViolationOther:
		return true
	}
	return false
}

// Severity grades a violation.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// ViolationAction is the sanction applied for a violation.
type ViolationAction string

const (
	ActionWarning        ViolationAction = "warning"
	ActionMute1d         ViolationAction = "mute_1d"
	ActionMute3d         ViolationAction = "mute_3d"
	ActionMute7d         ViolationAction = "mute_7d"
	ActionTemporaryBan   ViolationAction = "temporary_ban"
	ActionPermanentBan   ViolationAction = "permanent_ban"
	ActionContentRemoval ViolationAction = "content_removal"
)

// Duration returns how long a timed action lasts; zero means untimed.
func (a ViolationAction) Duration() time.Duration {
	switch a {
	case ActionMute1d:
		return 24 * time.Hour
	case ActionMute3d:
		return 3 * 24 * time.Hour
	case ActionMute7d:
		return 7 * 24 * time.Hour
	case ActionTemporaryBan:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Valid reports whether a is a known action.
func (a ViolationAction) Valid() bool {
	switch a {
	case ActionWarning, ActionMute1d, ActionMute3d, ActionMute7d,
		ActionTemporaryBan, ActionPermanentBan, ActionContentRemoval:
		return true
	}
	return false
}

// ViolationHistory is an append-only audit record. Rows are never updated.
type ViolationHistory struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	ViolationType ViolationType   `gorm:"size:20;not null;index" json:"violation_type"`
	Severity      Severity        `gorm:"size:10;not null;index" json:"severity"`
	PostID        *uint           `json:"post_id,omitempty"`
	CommentID     *uint           `json:"comment_id,omitempty"`
	Description   string          `gorm:"type:text" json:"description,omitempty"`
	ActionTaken   ViolationAction `gorm:"size:20;not null" json:"action_taken"`
	ActionBy      *uint           `json:"action_by,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// TableName keeps the singular table name used by the schema.
func (ViolationHistory) TableName() string {
	return "violation_history"
}

// KeywordSeverity decides how strongly a keyword match escalates review.
type KeywordSeverity string

const (
	KeywordBlock  KeywordSeverity = "block"
	KeywordFlag   KeywordSeverity = "flag"
	KeywordReview KeywordSeverity = "review"
)

// Priority maps a keyword severity to a queue priority.
func (s KeywordSeverity) Priority() int {
	switch s {
	case KeywordBlock:
		return PriorityBlock
	case KeywordFlag:
		return PriorityFlag
	case KeywordReview:
		return PriorityReview
	}
	return PriorityDefault
}

// Valid reports whether s is a known keyword severity.
func (s KeywordSeverity) Valid() bool {
	return s == KeywordBlock || s == KeywordFlag || s == KeywordReview
}

// BannedKeyword is a term screened against post captions.
type BannedKeyword struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Keyword           string          `gorm:"size:255;not null" json:"keyword"`
	KeywordNormalized string          `gorm:"size:255;not null;uniqueIndex" json:"keyword_normalized"`
	Severity          KeywordSeverity `gorm:"size:10;default:'flag'" json:"severity"`
	Category          string          `gorm:"size:20;default:'other'" json:"category"`
	IsRegex           bool            `gorm:"default:false" json:"is_regex"`
	IsActive          bool            `gorm:"default:true;index" json:"is_active"`
	AddedBy           *uint           `json:"added_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ReportTarget names what a report is about.
type ReportTarget string

const (
	ReportTargetPost    ReportTarget = "post"
	ReportTargetComment ReportTarget = "comment"
	ReportTargetUser    ReportTarget = "user"
)

// Valid reports whether t is a known report target.
func (t ReportTarget) Valid() bool {
	return t == ReportTargetPost || t == ReportTargetComment || t == ReportTargetUser
}

// ReportStatus tracks a report through moderation.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewing ReportStatus = "reviewing"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ReportReasons lists accepted report reasons.
var ReportReasons = map[string]bool{
	"spam": true, "violence": true, "hate_speech": true, "nudity": true,
	"scam": true, "terrorism": true, "other": true,
}

// Report is a user complaint about content or another user.
type Report struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ReporterID     uint         `gorm:"not null;index" json:"reporter_id"`
	TargetType     ReportTarget `gorm:"size:10;not null;index:idx_report_target" json:"target_type"`
	TargetID       uint         `gorm:"not null;index:idx_report_target" json:"target_id"`
	Reason         string       `gorm:"size:20;not null" json:"reason"`
	Description    string       `gorm:"type:text" json:"description,omitempty"`
	Status         ReportStatus `gorm:"size:10;default:'pending';index" json:"status"`
	ResolvedBy     *uint        `json:"resolved_by,omitempty"`
	ResolutionNote string       `gorm:"type:text" json:"resolution_note,omitempty"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt      time.Time    `gorm:"index" json:"created_at"`
}
