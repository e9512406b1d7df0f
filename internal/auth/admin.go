package auth

import (
	"context"
	"errors"
	"fmt"

	"smartlink/internal/domain"
	"smartlink/internal/storage"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrSelfChange guards admins against locking themselves out.
	ErrSelfChange = errors.New("admins cannot change their own account")
)

// ListUsers returns every account, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetActive approves or suspends userID. Suspending also ends its sessions
// on their next validation.
func (s *Service) SetActive(ctx context.Context, actorID, userID string, active bool) (*domain.User, error) {
	if actorID == userID {
		return nil, ErrSelfChange
	}
	return s.updateUser(ctx, userID, func(u *domain.User) {
		u.IsActive = active
	})
}

// SetRole changes userID's role to domain.RoleUser or domain.RoleAdmin.
func (s *Service) SetRole(ctx context.Context, actorID, userID, role string) (*domain.User, error) {
	if actorID == userID {
		return nil, ErrSelfChange
	}
	if fe := validationVar("role", role, "required,oneof=user admin"); fe != nil {
		return nil, fe
	}
	return s.updateUser(ctx, userID, func(u *domain.User) {
		u.Role = role
	})
}

// DeleteUser removes userID and everything it owns.
func (s *Service) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrSelfChange
	}
	err := s.repo.DeleteUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.WithField("user_id", userID).WithField("actor_id", actorID).Info("User deleted")
	return nil
}

func (s *Service) updateUser(ctx context.Context, userID string, mutate func(*domain.User)) (*domain.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	mutate(user)
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.log.WithField("user_id", user.ID).
		WithField("role", user.Role).
		WithField("active", user.IsActive).
		Info("User updated")
	return user, nil
}
