package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")
	for _, key := range []string{"JWT_SECRET_KEY", "SERVER_PORT", "DATABASE_PATH", "UPLOAD_DIR", "MAX_UPLOAD_SIZE_MB", "CORS_ALLOWED_ORIGINS"} {
		// t.Setenv registers the restore, Unsetenv makes the variable
		// genuinely absent so defaults kick in.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "thatchat.db", cfg.DatabasePath)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, 10, cfg.MaxUploadSizeMB)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "dev-only-insecure-secret", cfg.JWTSecretKey)
}

func TestLoad_ExplicitValues(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("DATABASE_PATH", "/tmp/chat.db")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "25")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "s3cret", cfg.JWTSecretKey)
	assert.Equal(t, "/tmp/chat.db", cfg.DatabasePath)
	assert.Equal(t, 25, cfg.MaxUploadSizeMB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "lots")

	cfg := Load()

	assert.Equal(t, 10, cfg.MaxUploadSizeMB)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , b ,"))
	assert.Empty(t, splitAndTrim("  ,  "))
}
