package service

import (
	"context"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
)

// FriendRequest is an incoming request as shown to its recipient.
type FriendRequest struct {
	User      models.PublicProfile `json:"user"`
	CreatedAt time.Time            `json:"created_at"`
}

type FriendService struct {
	uow      repository.UnitOfWork
	friends  repository.FriendRepository
	users    repository.UserRepository
	notifier *NotificationService
}

func NewFriendService(
	uow repository.UnitOfWork,
	friends repository.FriendRepository,
	users repository.UserRepository,
	notifier *NotificationService,
) *FriendService {
	return &FriendService{uow: uow, friends: friends, users: users, notifier: notifier}
}

// SendRequest writes both directional rows as pending with the caller as
// requester. Any existing edge decides the error.
func (s *FriendService) SendRequest(ctx context.Context, userID, targetID uint) error {
	if userID == targetID {
		return models.NewValidationError("Cannot send friend request to yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}

	err := s.uow.Within(ctx, func(r repository.Repos) error {
		blocked, err := r.Blocks.ExistsEitherWay(ctx, userID, targetID)
		if err != nil {
			return err
		}
		if blocked {
			return models.NewForbiddenError("Cannot send friend request")
		}

		edge, err := r.Friends.GetEdge(ctx, userID, targetID)
		if err != nil {
			return err
		}
		if edge != nil {
			switch edge.Status {
			case models.FriendshipStatusPending:
				return models.NewValidationError("Friend request already sent")
			case models.FriendshipStatusAccepted:
				return models.NewValidationError("Already friends")
			case models.FriendshipStatusBlocked:
				return models.NewForbiddenError("Cannot send friend request")
			default:
				if _, err := r.Friends.DeletePair(ctx, userID, targetID); err != nil {
					return err
				}
			}
		}
		return r.Friends.CreatePair(ctx, userID, targetID, userID, models.FriendshipStatusPending)
	})
	if err != nil {
		return err
	}

	s.notifier.Send(ctx, Notice{
		UserID:      targetID,
		Type:        models.NotifyFriendRequest,
		Title:       "New friend request",
		Message:     "You have a new friend request",
		RelatedID:   &userID,
		RelatedType: "user",
	})
	return nil
}

// Accept flips both pending rows of a request the caller received. Either
// both rows change or neither does.
func (s *FriendService) Accept(ctx context.Context, userID, requesterID uint) error {
	err := s.uow.Within(ctx, func(r repository.Repos) error {
		edge, err := r.Friends.GetEdge(ctx, userID, requesterID)
		if err != nil {
			return err
		}
		if edge == nil || edge.Status != models.FriendshipStatusPending || edge.RequesterID != requesterID {
			return models.NewNotFoundError("Friend request", requesterID)
		}
		n, err := r.Friends.UpdatePairStatus(ctx, userID, requesterID, models.FriendshipStatusPending, models.FriendshipStatusAccepted)
		if err != nil {
			return err
		}
		if n != 2 {
			return models.NewNotFoundError("Friend request", requesterID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Send(ctx, Notice{
		UserID:      requesterID,
		Type:        models.NotifyFriendAccept,
		Title:       "Friend request accepted",
		Message:     "Your friend request was accepted",
		RelatedID:   &userID,
		RelatedType: "user",
	})
	return nil
}

// Reject removes a pending pair. Rejection keeps no history.
func (s *FriendService) Reject(ctx context.Context, userID, requesterID uint) error {
	_, err := s.friends.DeletePair(ctx, userID, requesterID, models.FriendshipStatusPending, models.FriendshipStatusRejected)
	return err
}

// Unfriend removes both rows of a friendship or request. Blocked pairs are
// left for the block workflow.
func (s *FriendService) Unfriend(ctx context.Context, userID, friendID uint) error {
	_, err := s.friends.DeletePair(ctx, userID, friendID,
		models.FriendshipStatusAccepted, models.FriendshipStatusPending, models.FriendshipStatusRejected)
	return err
}

func (s *FriendService) List(ctx context.Context, userID uint) ([]models.PublicProfile, error) {
	users, err := s.friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// Incoming lists pending requests other users sent to userID.
func (s *FriendService) Incoming(ctx context.Context, userID uint) ([]FriendRequest, error) {
	rows, err := s.friends.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]FriendRequest, 0, len(rows))
	for i := range rows {
		out = append(out, FriendRequest{
			User:      rows[i].Friend.Public(),
			CreatedAt: rows[i].CreatedAt,
		})
	}
	return out, nil
}
