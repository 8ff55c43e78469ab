package repository

import (
	"context"
	"errors"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// FriendRepository manages friendship edges. Every relationship is a pair of
// rows, one per direction, and the pair methods always touch both.
type FriendRepository interface {
	GetEdge(ctx context.Context, userID, friendID uint) (*models.Friendship, error)
	CreatePair(ctx context.Context, a, b, requesterID uint, status models.FriendshipStatus) error
	UpdatePairStatus(ctx context.Context, a, b uint, from, to models.FriendshipStatus) (int64, error)
	DeletePair(ctx context.Context, a, b uint, statuses ...models.FriendshipStatus) (int64, error)
	ListFriends(ctx context.Context, userID uint) ([]models.User, error)
	ListIncoming(ctx context.Context, userID uint) ([]models.Friendship, error)
}

// friendRepository implements FriendRepository
type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

// GetEdge returns the userID->friendID row, or nil, nil when there is none.
func (r *friendRepository) GetEdge(ctx context.Context, userID, friendID uint) (*models.Friendship, error) {
	var edge models.Friendship
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &edge, nil
}

func (r *friendRepository) CreatePair(ctx context.Context, a, b, requesterID uint, status models.FriendshipStatus) error {
	pair := []models.Friendship{
		{UserID: a, FriendID: b, Status: status, RequesterID: requesterID},
		{UserID: b, FriendID: a, Status: status, RequesterID: requesterID},
	}
	if err := r.db.WithContext(ctx).Omit("User", "Friend").Create(&pair).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Friendship already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdatePairStatus moves both rows from one status to another and returns
// the number of rows changed.
func (r *friendRepository) UpdatePairStatus(ctx context.Context, a, b uint, from, to models.FriendshipStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where(pairClause, a, b, b, a).
		Where("status = ?", from).
		Update("status", to)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// DeletePair removes both rows, optionally only those in the given statuses.
func (r *friendRepository) DeletePair(ctx context.Context, a, b uint, statuses ...models.FriendshipStatus) (int64, error) {
	q := r.db.WithContext(ctx).Where(pairClause, a, b, b, a)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	res := q.Delete(&models.Friendship{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *friendRepository) ListFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Select("users.id", "users.username", "users.full_name", "users.avatar_url").
		Joins("JOIN friendships f ON f.friend_id = users.id").
		Where("f.user_id = ? AND f.status = ?", userID, models.FriendshipStatusAccepted).
		Order("users.username").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListIncoming returns pending rows owned by userID that someone else
// initiated, with the requester preloaded as Friend.
func (r *friendRepository) ListIncoming(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var requests []models.Friendship
	if err := readDB(r.db).WithContext(ctx).
		Preload("Friend", publicAuthor).
		Where("user_id = ? AND status = ? AND requester_id <> ?", userID, models.FriendshipStatusPending, userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

const pairClause = "((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?))"
