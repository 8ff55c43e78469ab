package service

import (
	"context"
	"sort"
	"strings"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
	"lcnetwork/internal/validation"
)

const (
	maxFullNameLen = 255
	maxPhoneLen    = 20
)

// UpdateProfileInput carries optional profile changes; nil leaves a field as is.
type UpdateProfileInput struct {
	UserID      uint
	FullName    *string
	PhoneNumber *string
	Username    *string
	Meta        RequestMeta
}

type UserService struct {
	users    repository.UserRepository
	roles    repository.RoleRepository
	activity *ActivityService
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository, activity *ActivityService) *UserService {
	return &UserService{users: users, roles: roles, activity: activity}
}

func (s *UserService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// PublicProfile returns another member's public fields. Unverified accounts
// are reported as missing.
func (s *UserService) PublicProfile(ctx context.Context, userID uint) (*models.PublicProfile, error) {
	profile, err := s.users.GetPublicProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, models.NewNotFoundError("User", userID)
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]any{}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, models.NewValidationError("Full name cannot be empty")
		}
		if len(name) > maxFullNameLen {
			return nil, models.NewValidationError("Full name too long (max 255 characters)")
		}
		fields["full_name"] = name
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		if len(phone) > maxPhoneLen {
			return nil, models.NewValidationError("Phone number too long (max 20 characters)")
		}
		fields["phone_number"] = phone
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != in.UserID {
			return nil, models.NewConflictError("Username already taken")
		}
		fields["username"] = username
	}
	if len(fields) == 0 {
		return nil, models.NewValidationError("No profile fields to update")
	}

	changed := fieldNames(fields)
	if err := s.users.UpdateFields(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, in.UserID, models.ActivityProfileUpdate, in.Meta, changed)
	return s.users.GetByID(ctx, in.UserID)
}

func (s *UserService) SetAvatar(ctx context.Context, userID uint, url string, meta RequestMeta) (*models.User, error) {
	if err := s.users.UpdateFields(ctx, userID, map[string]any{"avatar_url": url}); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, userID, models.ActivityProfileUpdate, meta, map[string]any{"fields": []string{"avatar_url"}})
	return s.users.GetByID(ctx, userID)
}

// HasAnyRole backs the moderator and admin route guards.
func (s *UserService) HasAnyRole(ctx context.Context, userID uint, roles ...models.Role) (bool, error) {
	return s.roles.HasAny(ctx, userID, roles...)
}

func (s *UserService) GrantRole(ctx context.Context, userID uint, role models.Role, grantedBy *uint) ([]models.UserRole, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.roles.Grant(ctx, userID, role, grantedBy); err != nil {
		return nil, err
	}
	return s.roles.ListByUser(ctx, userID)
}

// RevokeRole removes a grant. The base user role cannot be revoked.
func (s *UserService) RevokeRole(ctx context.Context, userID uint, role models.Role) ([]models.UserRole, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}
	if role == models.RoleUser {
		return nil, models.NewValidationError("The user role cannot be revoked")
	}
	removed, err := s.roles.Revoke(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewNotFoundError("Role grant", role)
	}
	return s.roles.ListByUser(ctx, userID)
}

// Staff lists moderators and admins.
func (s *UserService) Staff(ctx context.Context) ([]models.User, error) {
	return s.users.ListByRole(ctx, models.RoleModerator, models.RoleAdmin)
}

// Unban reactivates an account immediately.
func (s *UserService) Unban(ctx context.Context, userID uint) error {
	return s.users.UpdateFields(ctx, userID, map[string]any{
		"account_status": models.AccountStatusActive,
		"ban_until":      nil,
		"ban_reason":     "",
	})
}

func fieldNames(fields map[string]any) map[string]any {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return map[string]any{"fields": names}
}
