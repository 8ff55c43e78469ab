package service

import (
	"context"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
)

type BlockService struct {
	uow    repository.UnitOfWork
	blocks repository.BlockRepository
	users  repository.UserRepository
}

func NewBlockService(uow repository.UnitOfWork, blocks repository.BlockRepository, users repository.UserRepository) *BlockService {
	return &BlockService{uow: uow, blocks: blocks, users: users}
}

// Block records the block and replaces any friendship edge with a blocked pair.
func (s *BlockService) Block(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return models.NewValidationError("Cannot block yourself")
	}
	if _, err := s.users.GetByID(ctx, blockedID); err != nil {
		return err
	}
	return s.uow.Within(ctx, func(r repository.Repos) error {
		if err := r.Blocks.Create(ctx, blockerID, blockedID); err != nil {
			return err
		}
		if _, err := r.Friends.DeletePair(ctx, blockerID, blockedID); err != nil {
			return err
		}
		return r.Friends.CreatePair(ctx, blockerID, blockedID, blockerID, models.FriendshipStatusBlocked)
	})
}

// Unblock lifts the caller's block. The blocked friendship pair is removed
// only when the other user is not blocking back.
func (s *BlockService) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	return s.uow.Within(ctx, func(r repository.Repos) error {
		removed, err := r.Blocks.Delete(ctx, blockerID, blockedID)
		if err != nil {
			return err
		}
		if !removed {
			return models.NewNotFoundError("Block", blockedID)
		}
		stillBlocked, err := r.Blocks.Exists(ctx, blockedID, blockerID)
		if err != nil {
			return err
		}
		if stillBlocked {
			return nil
		}
		_, err = r.Friends.DeletePair(ctx, blockerID, blockedID, models.FriendshipStatusBlocked)
		return err
	})
}

func (s *BlockService) List(ctx context.Context, blockerID uint) ([]models.PublicProfile, error) {
	rows, err := s.blocks.ListByBlocker(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicProfile, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Blocked.Public())
	}
	return out, nil
}
