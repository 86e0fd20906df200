package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenExpiration)
	assert.Equal(t, "firestore", cfg.Firebase.StoreBackend)
	assert.Equal(t, "https://ipapi.co/{ip}/json/", cfg.Geo.URL)
	assert.Equal(t, "single", cfg.Forms.DefaultLayout)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("RATE_LIMIT_WINDOW", "30")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("AUDIT_ENABLED", "false")

	cfg := Load()
	assert.Equal(t, "memory", cfg.Firebase.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Audit.Enabled)
	assert.False(t, cfg.UsesFirestore())
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	cfg := Load()
	require.NoError(t, cfg.Validate())

	cfg.Server.Environment = "production"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "STORE_BACKEND=memory")

	cfg = Load()
	cfg.Firebase.StoreBackend = "mongo"
	assert.ErrorContains(t, cfg.Validate(), "unknown STORE_BACKEND")

	cfg = Load()
	cfg.Firebase.StoreBackend = "firestore"
	cfg.Firebase.CredentialsPath = "/nonexistent/key.json"
	assert.ErrorContains(t, cfg.Validate(), "credentials file not found")
}
