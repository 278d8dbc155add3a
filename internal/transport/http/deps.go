package http

import (
	"context"
	"fmt"
	"time"

	"github.com/go-api-careauth/internal/application/auth"
	"github.com/go-api-careauth/internal/application/gate"
	"github.com/go-api-careauth/internal/application/otp"
	"github.com/go-api-careauth/internal/application/prediction"
	"github.com/go-api-careauth/internal/application/user"
	"github.com/go-api-careauth/internal/config"
	"github.com/go-api-careauth/internal/domain"
	"github.com/go-api-careauth/internal/infrastructure/dynamo"
	"github.com/go-api-careauth/internal/infrastructure/memory"
)

// UserRepository is the credential store contract both backends implement.
// Lookups return nil, nil for absent users; mutations report matched counts.
type UserRepository interface {
	Insert(ctx context.Context, u *domain.User) (string, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error)
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	UpdateVerification(ctx context.Context, email string, verified bool) (int, error)
	UpdateRole(ctx context.Context, userID string, role domain.Role) (int, error)
	Delete(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

// PredictionRepository is the prediction store contract both backends implement.
type PredictionRepository interface {
	Put(ctx context.Context, p *domain.Prediction) error
	ListByEmail(ctx context.Context, email string) ([]domain.Prediction, error)
	Recent(ctx context.Context, n int) ([]domain.Prediction, error)
	List(ctx context.Context) ([]domain.Prediction, error)
	Count(ctx context.Context) (int, error)
}

var (
	_ UserRepository       = (*dynamo.UserRepo)(nil)
	_ UserRepository       = (*memory.UserStore)(nil)
	_ PredictionRepository = (*dynamo.PredictionRepo)(nil)
	_ PredictionRepository = (*memory.PredictionStore)(nil)
)

// PasswordHasher is satisfied by *password.Hasher.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenService is satisfied by *jwtinfra.Provider.
type TokenService interface {
	Issue(subject string) (string, error)
	Validate(token string) (string, error)
	Expiry() time.Duration
}

// Mailer is satisfied by smtp.Mailer.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       UserRepository
	PredictionRepo PredictionRepository
	OTPStore       otp.Store
	Hasher         PasswordHasher
	Tokens         TokenService
	Mailer         Mailer
	Predictor      prediction.Predictor // nil uses the heuristic predictor
}

// Services are the application services wired from Deps.
type Services struct {
	Gate       *gate.Gate
	Auth       auth.Service
	Users      user.Service
	Prediction prediction.Service
}

// NewServices builds every application service from deps.
func NewServices(cfg *config.Config, deps *Deps) (*Services, error) {
	authSvc, err := auth.NewService(auth.ServiceDeps{
		Users:          deps.UserRepo,
		Hasher:         deps.Hasher,
		OTP:            otp.NewManager(deps.OTPStore, otp.WithTTL(cfg.OTPTTL), otp.WithMaxAttempts(cfg.OTPMaxAttempts)),
		Tokens:         deps.Tokens,
		Mailer:         deps.Mailer,
		AllowAdminRole: cfg.AllowAdminSelfRegistration,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return &Services{
		Gate:  gate.New(deps.Tokens, deps.UserRepo),
		Auth:  authSvc,
		Users: user.NewService(deps.UserRepo),
		Prediction: prediction.NewService(prediction.ServiceDeps{
			Predictions: deps.PredictionRepo,
			Users:       deps.UserRepo,
			Predictor:   deps.Predictor,
		}),
	}, nil
}
