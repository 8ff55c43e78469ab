package models

import "time"

// FriendshipStatus represents the status of a friendship edge.
type FriendshipStatus string

const (
	// FriendshipStatusPending indicates a pending friendship request.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusAccepted indicates an accepted friendship request.
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	// FriendshipStatusRejected is kept for rows imported from older data; rejection deletes the pair.
	FriendshipStatusRejected FriendshipStatus = "rejected"
	// FriendshipStatusBlocked indicates a blocked pair.
	FriendshipStatusBlocked FriendshipStatus = "blocked"
)

// Friendship is one direction of a symmetric pair. Every social edge is
// stored twice (A->B and B->A) with the same status and RequesterID.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"not null;uniqueIndex:idx_friendship_pair;index" json:"user_id"`
	FriendID    uint             `gorm:"not null;uniqueIndex:idx_friendship_pair;index" json:"friend_id"`
	Status      FriendshipStatus `gorm:"size:20;default:'pending';index" json:"status"`
	RequesterID uint             `gorm:"not null" json:"requester_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Friend User `gorm:"foreignKey:FriendID;constraint:OnDelete:CASCADE" json:"friend,omitempty"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// Incoming reports whether the row is a pending request the row owner received.
func (f *Friendship) Incoming() bool {
	return f.Status == FriendshipStatusPending && f.RequesterID != f.UserID
}
