package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_EXPIRY_MINUTES", "")
	t.Setenv("OTP_TTL_SECONDS", "")
	t.Setenv("OTP_MAX_ATTEMPTS", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	cfg := Load()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 60*time.Minute, cfg.JWTExpiry)
	assert.Equal(t, 120*time.Second, cfg.OTPTTL)
	assert.Equal(t, "memory", cfg.OTPBackend)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.False(t, cfg.TrustProxy)
	assert.False(t, cfg.AllowAdminSelfRegistration)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_EXPIRY_MINUTES", "15")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ALLOW_ADMIN_SELF_REGISTRATION", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUST_PROXY_HEADERS", "true")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.JWTExpiry)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.True(t, cfg.AllowAdminSelfRegistration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
}

func TestLoad_MalformedNumberFallsBack(t *testing.T) {
	t.Setenv("OTP_TTL_SECONDS", "soon")
	assert.Equal(t, 120*time.Second, Load().OTPTTL)
}

func validConfig() *Config {
	return &Config{
		AppEnv:         "production",
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		JWTExpiry:      time.Hour,
		OTPTTL:         2 * time.Minute,
		OTPMaxAttempts: 5,
		StoreBackend:   "dynamo",
		OTPBackend:     "redis",
		PasswordAlgo:   "bcrypt",
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_MissingSecretInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestValidate_MissingSecretAllowedInDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.AppEnv = "development"
	cfg.JWTSecret = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "at least 32 bytes")
}

func TestValidate_UnknownBackends(t *testing.T) {
	cfg := validConfig()
	cfg.StoreBackend = "mongo"
	cfg.OTPBackend = "memcached"
	cfg.PasswordAlgo = "md5"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "STORE_BACKEND")
	assert.ErrorContains(t, err, "OTP_BACKEND")
	assert.ErrorContains(t, err, "PASSWORD_ALGO")
}

func TestValidate_AdminSeedPairing(t *testing.T) {
	cfg := validConfig()
	cfg.AdminEmail = "root@example.com"
	assert.ErrorContains(t, cfg.Validate(), "ADMIN_EMAIL")
}

func TestValidate_OTPMaxAttempts(t *testing.T) {
	cfg := validConfig()
	cfg.OTPMaxAttempts = 0
	assert.ErrorContains(t, cfg.Validate(), "OTP_MAX_ATTEMPTS")
}
