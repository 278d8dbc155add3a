// Package prediction serves the role-gated prediction and dashboard resources.
package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/go-api-careauth/internal/application/gate"
	"github.com/go-api-careauth/internal/domain"
	"github.com/go-api-careauth/internal/pkg/id"
)

const recentCount = 5

// PatientSummary is one row of the doctor dashboard.
type PatientSummary struct {
	Patient     domain.PublicProfile `json:"patient"`
	Predictions int                  `json:"total_predictions"`
	LastRisk    string               `json:"last_risk_level,omitempty"`
}

type Service interface {
	Predict(ctx context.Context, caller *domain.User, in domain.PredictionInput) (*domain.Prediction, error)
	History(ctx context.Context, caller *domain.User, email string) ([]domain.Prediction, error)
	DoctorPatients(ctx context.Context, caller *domain.User) ([]PatientSummary, error)
	Analytics(ctx context.Context, caller *domain.User) (*domain.Analytics, error)
	All(ctx context.Context, caller *domain.User) ([]domain.Prediction, error)
}

type predictionStore interface {
	Put(ctx context.Context, p *domain.Prediction) error
	ListByEmail(ctx context.Context, email string) ([]domain.Prediction, error)
	Recent(ctx context.Context, n int) ([]domain.Prediction, error)
	List(ctx context.Context) ([]domain.Prediction, error)
	Count(ctx context.Context) (int, error)
}

type userCounter interface {
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

type ServiceDeps struct {
	Predictions predictionStore
	Users       userCounter
	Predictor   Predictor
	Now         func() time.Time
}

type service struct {
	predictions predictionStore
	users       userCounter
	predictor   Predictor
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		predictions: deps.Predictions,
		users:       deps.Users,
		predictor:   deps.Predictor,
		now:         deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.predictor == nil {
		s.predictor = NewHeuristicPredictor(nil)
	}
	return s
}

// Predict scores in for the caller and records the result under the caller's email.
func (s *service) Predict(ctx context.Context, caller *domain.User, in domain.PredictionInput) (*domain.Prediction, error) {
	if _, err := gate.Authorize(caller); err != nil {
		return nil, err
	}
	out := s.predictor.Predict(vitalsFrom(in))
	now := s.now().UTC()
	p := &domain.Prediction{
		PredictionID:     id.NewAt(now),
		Email:            caller.Email,
		PredictedLOSDays: out.LOSDays,
		MortalityPct:     out.MortalityPct,
		RiskLevel:        out.RiskLevel,
		CreatedAt:        now,
	}
	if err := s.predictions.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// History lists the predictions owned by email, newest first. Callers may read
// their own history; doctors and admins may read anyone's. An empty email
// means the caller's own.
func (s *service) History(ctx context.Context, caller *domain.User, email string) ([]domain.Prediction, error) {
	if _, err := gate.Authorize(caller); err != nil {
		return nil, err
	}
	if email == "" {
		email = caller.Email
	}
	if email != caller.Email {
		if _, err := gate.Authorize(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
			return nil, err
		}
	}
	preds, err := s.predictions.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("no predictions found for this user: %w", domain.ErrNotFound)
	}
	return preds, nil
}

func (s *service) DoctorPatients(ctx context.Context, caller *domain.User) ([]PatientSummary, error) {
	if _, err := gate.Authorize(caller, domain.RoleDoctor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	patients, err := s.users.ListByRole(ctx, domain.RolePatient)
	if err != nil {
		return nil, err
	}
	out := make([]PatientSummary, 0, len(patients))
	for i := range patients {
		preds, err := s.predictions.ListByEmail(ctx, patients[i].Email)
		if err != nil {
			return nil, err
		}
		row := PatientSummary{Patient: *patients[i].Profile(), Predictions: len(preds)}
		if len(preds) > 0 {
			row.LastRisk = preds[0].RiskLevel
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *service) Analytics(ctx context.Context, caller *domain.User) (*domain.Analytics, error) {
	if _, err := gate.Authorize(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	var (
		a   domain.Analytics
		err error
	)
	if a.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if a.TotalDoctors, err = s.users.CountByRole(ctx, domain.RoleDoctor); err != nil {
		return nil, err
	}
	if a.TotalPatients, err = s.users.CountByRole(ctx, domain.RolePatient); err != nil {
		return nil, err
	}
	if a.TotalPredictions, err = s.predictions.Count(ctx); err != nil {
		return nil, err
	}
	if a.RecentPredictions, err = s.predictions.Recent(ctx, recentCount); err != nil {
		return nil, err
	}
	return &a, nil
}

// All lists every stored prediction, newest first. Admin only.
func (s *service) All(ctx context.Context, caller *domain.User) ([]domain.Prediction, error) {
	if _, err := gate.Authorize(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.predictions.List(ctx)
}
