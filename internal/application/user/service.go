// Package user implements admin-only account management.
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-api-careauth/internal/application/gate"
	"github.com/go-api-careauth/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service interface {
	UpdateRole(ctx context.Context, caller *domain.User, userID, role string) (*domain.PublicProfile, error)
	List(ctx context.Context, caller *domain.User, limit int, cursor string) ([]domain.PublicProfile, string, error)
	Delete(ctx context.Context, caller *domain.User, userID string) error
}

type userStore interface {
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) (int, error)
	Delete(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

type service struct {
	repo userStore
}

func NewService(repo userStore) Service {
	return &service{repo: repo}
}

// UpdateRole changes the role of userID. The new role applies to the very
// next request the user makes, with any token they already hold.
func (s *service) UpdateRole(ctx context.Context, caller *domain.User, userID, role string) (*domain.PublicProfile, error) {
	if _, err := gate.Authorize(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	matched, err := s.repo.UpdateRole(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	slog.Info("role updated", "user_id", userID, "role", r, "by", caller.UserID)

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return u.Profile(), nil
}

func (s *service) List(ctx context.Context, caller *domain.User, limit int, cursor string) ([]domain.PublicProfile, string, error) {
	if _, err := gate.Authorize(caller, domain.RoleAdmin); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	users, next, err := s.repo.List(ctx, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]domain.PublicProfile, len(users))
	for i := range users {
		out[i] = *users[i].Profile()
	}
	return out, next, nil
}

// Delete removes userID. Admins cannot delete themselves.
func (s *service) Delete(ctx context.Context, caller *domain.User, userID string) error {
	if _, err := gate.Authorize(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if caller.UserID == userID {
		return fmt.Errorf("cannot delete your own account: %w", domain.ErrBadRequest)
	}
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	slog.Info("user deleted", "user_id", userID, "by", caller.UserID)
	return nil
}
