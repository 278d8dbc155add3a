package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-api-careauth/internal/domain"
)

// UserStore is a process-local credential store for development and tests.
// Every method holds the lock for the whole operation, so each mutation is
// atomic per record.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.User
	now     func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]*domain.User), now: time.Now}
}

func (s *UserStore) Insert(_ context.Context, u *domain.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	cp := *u
	s.byEmail[u.Email] = &cp
	return u.UserID, nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.byEmail[email]), nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.find(func(u *domain.User) bool { return username != "" && u.Username == username })), nil
}

func (s *UserStore) FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		if u, _ := s.FindByEmail(ctx, identifier); u != nil {
			return u, nil
		}
	}
	return s.FindByUsername(ctx, identifier)
}

func (s *UserStore) GetByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.find(func(u *domain.User) bool { return u.UserID == userID })), nil
}

func (s *UserStore) UpdateVerification(_ context.Context, email string, verified bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return 0, nil
	}
	u.Verified = verified
	u.UpdatedAt = s.now().UTC()
	return 1, nil
}

func (s *UserStore) UpdateRole(_ context.Context, userID string, role domain.Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *domain.User) bool { return u.UserID == userID })
	if u == nil {
		return 0, nil
	}
	u.Role = role
	u.UpdatedAt = s.now().UTC()
	return 1, nil
}

func (s *UserStore) Delete(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *domain.User) bool { return u.UserID == userID })
	if u == nil {
		return 0, nil
	}
	delete(s.byEmail, u.Email)
	return 1, nil
}

// List pages through users ordered by email. cursor is the base64 email of
// the last user of the previous page.
func (s *UserStore) List(_ context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	after := ""
	if cursor != "" {
		b, err := base64.RawURLEncoding.DecodeString(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		after = string(b)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	emails := make([]string, 0, len(s.byEmail))
	for e := range s.byEmail {
		if e > after {
			emails = append(emails, e)
		}
	}
	sort.Strings(emails)

	users := []domain.User{}
	for _, e := range emails {
		if int32(len(users)) == limit {
			break
		}
		users = append(users, *s.byEmail[e])
	}
	next := ""
	if len(users) > 0 && len(users) < len(emails) {
		next = base64.RawURLEncoding.EncodeToString([]byte(users[len(users)-1].Email))
	}
	return users, next, nil
}

func (s *UserStore) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := []domain.User{}
	for _, u := range s.byEmail {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (s *UserStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail), nil
}

func (s *UserStore) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	users, err := s.ListByRole(ctx, role)
	return len(users), err
}

// find must be called with s.mu held.
func (s *UserStore) find(match func(*domain.User) bool) *domain.User {
	for _, u := range s.byEmail {
		if match(u) {
			return u
		}
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
