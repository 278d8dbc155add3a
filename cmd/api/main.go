package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-api-careauth/internal/application/otp"
	"github.com/go-api-careauth/internal/config"
	"github.com/go-api-careauth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-api-careauth/internal/infrastructure/jwt"
	"github.com/go-api-careauth/internal/infrastructure/memory"
	redisinfra "github.com/go-api-careauth/internal/infrastructure/redis"
	"github.com/go-api-careauth/internal/infrastructure/smtp"
	"github.com/go-api-careauth/internal/pkg/password"
	transporthttp "github.com/go-api-careauth/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		// Only reachable in development.
		secret = ephemeralSecret()
		slog.Warn("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	tokens, err := jwtinfra.NewProvider(secret, cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	hasher, err := password.New(cfg.PasswordAlgo, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	deps := &transporthttp.Deps{
		Hasher: hasher,
		Tokens: tokens,
		Mailer: smtp.NewMailer(cfg),
	}
	if cfg.SMTPHost == "" {
		slog.Warn("SMTP_HOST not set, OTP requests will answer 503")
	}

	switch cfg.StoreBackend {
	case "memory":
		slog.Warn("using in-memory user store; data is lost on restart")
		deps.UserRepo = memory.NewUserStore()
		deps.PredictionRepo = memory.NewPredictionStore()
	default:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		// Creates the tables and GSIs when they do not exist yet.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		deps.UserRepo = dynamo.NewUserRepo(client, cfg.DynamoTables.Users)
		deps.PredictionRepo = dynamo.NewPredictionRepo(client, cfg.DynamoTables.Predictions)
	}

	otpStore, closeOTP, err := newOTPStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOTP()
	deps.OTPStore = otpStore

	svcs, err := transporthttp.NewServices(cfg, deps)
	if err != nil {
		return err
	}
	if cfg.AdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		err := svcs.Auth.EnsureAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, svcs),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"store", cfg.StoreBackend, "otp", cfg.OTPBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newOTPStore picks the OTP backend. The in-memory store is swept in the
// background until ctx is done.
func newOTPStore(ctx context.Context, cfg *config.Config) (otp.Store, func(), error) {
	if cfg.OTPBackend == "redis" {
		client, err := redisinfra.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewOTPStore(client, "otp"), func() { _ = client.Close() }, nil
	}
	store := memory.NewOTPStore()
	go store.RunSweeper(ctx, time.Minute)
	return store, func() {}, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func ephemeralSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return []byte(hex.EncodeToString(b))
}
