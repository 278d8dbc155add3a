// Package auth implements registration, email verification and login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-api-careauth/internal/application/otp"
	"github.com/go-api-careauth/internal/domain"
	"github.com/go-api-careauth/internal/pkg/id"
)

const defaultHospital = "N/A"

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,max=72"`
	Username    string `json:"username" validate:"omitempty,min=2,max=64"`
	Role        string `json:"role" validate:"omitempty,role"`
	Hospital    string `json:"hospital" validate:"max=128"`
	Designation string `json:"designation" validate:"max=128"`
}

type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,len=6"`
}

type LoginRequest struct {
	Identifier string `json:"username_or_email" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// LoginResult is a freshly issued session token and the profile it belongs to.
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	User      *domain.PublicProfile `json:"user"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.PublicProfile, error)
	RequestOTP(ctx context.Context, req OTPRequest) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) error
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error)
	Insert(ctx context.Context, u *domain.User) (string, error)
	UpdateVerification(ctx context.Context, email string, verified bool) (int, error)
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type otpManager interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) (otp.Result, error)
	Clear(ctx context.Context, email string) error
	TTL() time.Duration
}

type tokenIssuer interface {
	Issue(subject string) (string, error)
	Expiry() time.Duration
}

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type ServiceDeps struct {
	Users          userStore
	Hasher         passwordHasher
	OTP            otpManager
	Tokens         tokenIssuer
	Mailer         mailer
	AllowAdminRole bool             // admit self-registration with role Admin
	Now            func() time.Time // defaults to time.Now
}

type service struct {
	users          userStore
	hasher         passwordHasher
	otp            otpManager
	tokens         tokenIssuer
	mailer         mailer
	allowAdminRole bool
	now            func() time.Time
	dummyHash      string
}

func NewService(deps ServiceDeps) (Service, error) {
	s := &service{
		users:          deps.Users,
		hasher:         deps.Hasher,
		otp:            deps.OTP,
		tokens:         deps.Tokens,
		mailer:         deps.Mailer,
		allowAdminRole: deps.AllowAdminRole,
		now:            deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	// Verified against on unknown identifiers so both login failures cost one hash.
	h, err := s.hasher.Hash("careauth-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*domain.PublicProfile, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", domain.ErrBadRequest)
	}
	role := domain.RolePatient
	if req.Role != "" {
		r, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, err
		}
		role = r
	}
	if role == domain.RoleAdmin && !s.allowAdminRole {
		return nil, fmt.Errorf("admin accounts cannot self-register: %w", domain.ErrForbidden)
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
	}

	now := s.now().UTC()
	userID := id.NewAt(now)
	displayID := displayIDFor(role, now)
	username, err := s.pickUsername(ctx, req.Username, req.Email, displayID, userID)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	hospital := req.Hospital
	if hospital == "" {
		hospital = defaultHospital
	}
	u := &domain.User{
		UserID:       userID,
		Email:        req.Email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Verified:     false,
		Hospital:     hospital,
		Designation:  req.Designation,
		DisplayID:    displayID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The store's conditional insert settles races the lookup above missed.
	if _, err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("user registered", "user_id", u.UserID, "role", u.Role)
	return u.Profile(), nil
}

// pickUsername keeps an explicit username or derives one from the email
// local part. A taken explicit name is a conflict. A taken derived name gets
// the display-id digits appended, then a fragment of the user id.
func (s *service) pickUsername(ctx context.Context, explicit, email, displayID, userID string) (string, error) {
	if explicit != "" {
		taken, err := s.usernameTaken(ctx, explicit)
		if err != nil {
			return "", err
		}
		if taken {
			return "", fmt.Errorf("username already taken: %w", domain.ErrConflict)
		}
		return explicit, nil
	}
	derived, _, _ := strings.Cut(email, "@")
	candidates := []string{
		derived,
		derived + displayID[1:],
		derived + "-" + strings.ToLower(userID[len(userID)-8:]),
	}
	for _, name := range candidates {
		taken, err := s.usernameTaken(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free username derived from %q: %w", derived, domain.ErrConflict)
}

func (s *service) usernameTaken(ctx context.Context, name string) (bool, error) {
	u, err := s.users.FindByUsername(ctx, name)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

// displayIDFor is D for doctors and P for everyone else, followed by the
// last five digits of the registration time in milliseconds.
func displayIDFor(role domain.Role, t time.Time) string {
	prefix := "P"
	if role == domain.RoleDoctor {
		prefix = "D"
	}
	return fmt.Sprintf("%s%05d", prefix, t.UnixMilli()%100000)
}

func (s *service) RequestOTP(ctx context.Context, req OTPRequest) error {
	if req.Email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	code, err := s.otp.Issue(ctx, req.Email)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your verification code is: %s\nThis code is valid for %d minutes.\n", code, int(s.otp.TTL().Minutes()))
	if err := s.mailer.SendEmail(ctx, req.Email, "Your Verification OTP", body); err != nil {
		if cerr := s.otp.Clear(ctx, req.Email); cerr != nil {
			slog.Warn("failed to clear undelivered otp", "email", req.Email, "err", cerr)
		}
		slog.Error("otp delivery failed", "email", req.Email, "err", err)
		if errors.Is(err, domain.ErrUnavailable) {
			return err
		}
		return fmt.Errorf("send otp: %w", domain.ErrUnavailable)
	}
	slog.Info("otp issued", "email", req.Email)
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	if req.Email == "" || req.OTP == "" {
		return fmt.Errorf("email and otp are required: %w", domain.ErrBadRequest)
	}
	res, err := s.otp.Verify(ctx, req.Email, req.OTP)
	if err != nil {
		return err
	}
	switch res {
	case otp.ResultOK:
	case otp.ResultNotFound:
		return fmt.Errorf("no otp found, request a new one: %w", domain.ErrBadRequest)
	case otp.ResultExpired:
		return fmt.Errorf("otp expired, request a new one: %w", domain.ErrBadRequest)
	case otp.ResultLocked:
		slog.Warn("otp discarded after too many wrong attempts", "email", req.Email)
		return fmt.Errorf("too many wrong attempts, request a new otp: %w", domain.ErrBadRequest)
	default:
		return fmt.Errorf("invalid otp: %w", domain.ErrBadRequest)
	}

	matched, err := s.users.UpdateVerification(ctx, req.Email, true)
	if err != nil {
		return err
	}
	if matched == 0 {
		// An OTP can be requested for an address that never registered.
		slog.Info("otp verified for unregistered email", "email", req.Email)
	}
	return nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Identifier == "" || req.Password == "" {
		return nil, fmt.Errorf("identifier and password are required: %w", domain.ErrBadRequest)
	}
	u, err := s.users.FindByEmailOrUsername(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.hasher.Verify(req.Password, s.dummyHash)
		return nil, errBadCredentials
	}
	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		return nil, errBadCredentials
	}
	if !u.Verified {
		return nil, fmt.Errorf("email not verified: %w", domain.ErrForbidden)
	}
	token, err := s.tokens.Issue(u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	slog.Info("user logged in", "user_id", u.UserID)
	return &LoginResult{
		Token:     token,
		ExpiresAt: s.now().Add(s.tokens.Expiry()).UTC(),
		User:      u.Profile(),
	}, nil
}

var errBadCredentials = fmt.Errorf("invalid email/username or password: %w", domain.ErrUnauthorized)

// EnsureAdmin creates a verified Admin with the given credentials unless a
// user with that email already exists.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if !existing.Role.Is(domain.RoleAdmin) {
			slog.Warn("admin seed email belongs to a non-admin user", "email", email, "role", existing.Role)
		}
		return nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	derived, _, _ := strings.Cut(email, "@")
	u := &domain.User{
		UserID:       id.NewAt(now),
		Email:        email,
		Username:     derived,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Verified:     true,
		Hospital:     defaultHospital,
		DisplayID:    displayIDFor(domain.RoleAdmin, now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.Insert(ctx, u); err != nil && !errors.Is(err, domain.ErrConflict) {
		return err
	}
	slog.Info("admin account seeded", "email", email)
	return nil
}
