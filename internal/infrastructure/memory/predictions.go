package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-api-careauth/internal/domain"
)

type PredictionStore struct {
	mu    sync.RWMutex
	items []domain.Prediction
}

func NewPredictionStore() *PredictionStore {
	return &PredictionStore{}
}

func (s *PredictionStore) Put(_ context.Context, p *domain.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *p)
	return nil
}

func (s *PredictionStore) ListByEmail(_ context.Context, email string) ([]domain.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Prediction{}
	for _, p := range s.items {
		if p.Email == email {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *PredictionStore) Recent(_ context.Context, n int) ([]domain.Prediction, error) {
	s.mu.RLock()
	out := append([]domain.Prediction{}, s.items...)
	s.mu.RUnlock()
	sortNewestFirst(out)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// List returns every prediction, newest first.
func (s *PredictionStore) List(_ context.Context) ([]domain.Prediction, error) {
	s.mu.RLock()
	out := append([]domain.Prediction{}, s.items...)
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *PredictionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func sortNewestFirst(ps []domain.Prediction) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
}
