package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, 24*time.Hour, cfg.PasswordResetExpiry)
	assert.False(t, cfg.EmailEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "30m")
	t.Setenv("PASSWORD_RESET_TOKEN_EXPIRY", "12h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.deviaje.com.ar,https://admin.deviaje.com.ar")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 30*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 12*time.Hour, cfg.PasswordResetExpiry)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_ProductionRequiresExplicitSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ProductionRejectsShortSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_ProductionAcceptsStrongSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "a-strong-secret-that-is-long-enough-123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db.internal",
		PostgresPort: 5433,
		PostgresUser: "svc",
		PostgresPass: "pw",
		PostgresDB:   "users",
		PostgresSSL:  "require",
	}

	assert.Equal(t, "postgres://svc:pw@db.internal:5433/users?sslmode=require", cfg.PostgresDSN())
}
