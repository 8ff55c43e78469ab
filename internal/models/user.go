// Package models contains the GORM entities of the LC Network domain.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// AccountStatus is the moderation standing of an account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusWarning AccountStatus = "warning"
	AccountStatusBanned  AccountStatus = "banned"
)

// User represents a member of the network.
// PasswordHash is nil for accounts created through an external provider.
type User struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Email           string        `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username        string        `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash    *string       `gorm:"size:255" json:"-"`
	FullName        string        `gorm:"size:255;not null" json:"full_name"`
	PhoneNumber     string        `gorm:"size:20" json:"phone_number,omitempty"`
	AvatarURL       string        `gorm:"type:text" json:"avatar_url,omitempty"`
	OAuthProvider   string        `gorm:"column:oauth_provider;size:20;default:'local'" json:"oauth_provider"`
	AccountStatus   AccountStatus `gorm:"size:20;default:'active';index" json:"account_status"`
	WarningCount    int           `gorm:"default:0" json:"warning_count"`
	BanReason       string        `gorm:"type:text" json:"ban_reason,omitempty"`
	BanUntil        *time.Time    `json:"ban_until,omitempty"`
	IsEmailVerified bool          `gorm:"default:false" json:"is_email_verified"`
	OTPCode         string        `gorm:"size:6" json:"-"`
	OTPCreatedAt    *time.Time    `json:"-"`
	OTPVerified     bool          `gorm:"default:false" json:"otp_verified"`
	LastLoginAt     *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Roles []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"roles,omitempty"`
}

// IsBanned reports whether the ban is still in force at now.
// A ban with no expiry is permanent.
func (u *User) IsBanned(now time.Time) bool {
	if u.AccountStatus != AccountStatusBanned {
		return false
	}
	return u.BanUntil == nil || u.BanUntil.After(now)
}

// BanExpired reports whether a temporary ban has lapsed and the account may be reactivated.
func (u *User) BanExpired(now time.Time) bool {
	return u.AccountStatus == AccountStatusBanned && u.BanUntil != nil && !u.BanUntil.After(now)
}

// CanPublish reports whether the account may create content. Warned
// accounts keep publishing; banned ones do not.
func (u *User) CanPublish() bool {
	return u.AccountStatus != AccountStatusBanned
}

// PublicProfile is the subset of User visible to other members.
type PublicProfile struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Public returns the profile fields other users may see.
func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, FullName: u.FullName, AvatarURL: u.AvatarURL}
}

// Role is a permission grant.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

// UserRole grants a Role to a user. (user_id, role) is unique.
type UserRole struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_role" json:"user_id"`
	Role      Role      `gorm:"size:20;not null;default:'user';uniqueIndex:idx_user_role;index" json:"role"`
	GrantedBy *uint     `json:"granted_by,omitempty"`
	GrantedAt time.Time `gorm:"autoCreateTime" json:"granted_at"`
}

// ActivityType enumerates audited account actions.
type ActivityType string

const (
	ActivityRegister       ActivityType = "register"
	ActivityVerify         ActivityType = "verify_email"
	ActivityLogin          ActivityType = "login"
	ActivityLogout         ActivityType = "logout"
	ActivityPostCreate     ActivityType = "post_create"
	ActivityPostUpdate     ActivityType = "post_update"
	ActivityPostDelete     ActivityType = "post_delete"
	ActivityProfileUpdate  ActivityType = "profile_update"
	ActivityPasswordChange ActivityType = "password_change"
)

// UserActivityLog is an audit trail entry for an account.
type UserActivityLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	ActivityType ActivityType   `gorm:"size:30;not null" json:"activity_type"`
	IPAddress    string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

// UserBlock records that BlockerID no longer wants contact with BlockedID.
type UserBlock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BlockerID uint      `gorm:"not null;uniqueIndex:idx_user_block" json:"blocker_id"`
	BlockedID uint      `gorm:"not null;uniqueIndex:idx_user_block;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`

	Blocked User `gorm:"foreignKey:BlockedID;constraint:OnDelete:CASCADE" json:"blocked,omitempty"`
}
