package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/s8garante")
	t.Setenv("JWT_SECRET_KEY", "segredo")
	t.Setenv("JWT_EXPIRY_MIN", "15")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("DB_TIMEOUT_SEC", "abc")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://localhost/s8garante", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.TokenExpiry)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	// Valor inválido cai no padrão
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 24*time.Hour, cfg.GeoCacheTTL)
}
