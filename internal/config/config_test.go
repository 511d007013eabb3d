package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "")
	t.Setenv("DEFAULT_FROM_EMAIL", "")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "noreply@eskan.com", cfg.DefaultFromEmail)
	assert.Equal(t, "support@eskan.com", cfg.SupportEmail)
	assert.Equal(t, "properties", cfg.MeilisearchIndex)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CORS_ORIGINS", "https://eskan.com, https://admin.eskan.com")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.MinIOUseSSL)
	assert.Equal(t, []string{"https://eskan.com", "https://admin.eskan.com"}, cfg.CORSOrigins)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eskan.yaml")
	body := "port: \"9090\"\nmeilisearch_host: http://search:7700\npassword_reset_ttl: 30m\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg := Load()
	cfg.SupportEmail = "help@eskan.com"
	require.NoError(t, LoadFile(cfg, path))

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://search:7700", cfg.MeilisearchHost)
	assert.Equal(t, 30*time.Minute, cfg.PasswordResetTTL)
	assert.Equal(t, "help@eskan.com", cfg.SupportEmail)
}

func TestLoadFileMissing(t *testing.T) {
	err := LoadFile(Load(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
