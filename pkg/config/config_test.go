package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDBEnv(t *testing.T) {
	for _, k := range []string{
		"DATABASE_URL", "TURSO_DATABASE_URL", "VITE_TURSO_DATABASE_URL",
		"DATABASE_AUTH_TOKEN", "TURSO_AUTH_TOKEN", "VITE_TURSO_AUTH_TOKEN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearDBEnv(t)
	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingDatabaseURL)
}

func TestLoadDefaults(t *testing.T) {
	clearDBEnv(t)
	t.Setenv("DATABASE_URL", "file:agenticos.db")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "file:agenticos.db", cfg.DatabaseURL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoadFallsBackToTursoVariables(t *testing.T) {
	clearDBEnv(t)
	t.Setenv("VITE_TURSO_DATABASE_URL", "libsql://demo.turso.io")
	t.Setenv("VITE_TURSO_AUTH_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "libsql://demo.turso.io", cfg.DatabaseURL)
	assert.Equal(t, "tok", cfg.DatabaseAuthToken)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearDBEnv(t)
	t.Setenv("DATABASE_URL", "file:x.db")

	t.Setenv("SERVER_PORT", "eighty")
	_, err := Load()
	assert.ErrorContains(t, err, "SERVER_PORT")

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TTL", "forever")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_TTL")
}

func TestParseCSVEnv(t *testing.T) {
	t.Setenv("ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, parseCSVEnv("ORIGINS", nil))

	t.Setenv("ORIGINS", " , ")
	assert.Equal(t, []string{"x"}, parseCSVEnv("ORIGINS", []string{"x"}))
}
