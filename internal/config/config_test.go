package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MAX_RECENT_VIEWS", "5")
	t.Setenv("CONTENT_TIMEOUT", "2s")
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 5, cfg.Documents.MaxRecentViews)
	assert.Equal(t, 2*time.Second, cfg.Documents.ContentTimeout)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoad_DocumentDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 20, cfg.Documents.DefaultPageSize)
	assert.Equal(t, 100, cfg.Documents.MaxPageSize)
	assert.Equal(t, 10, cfg.Documents.RecentViewsLimit)
	assert.Equal(t, int64(16*1024*1024), cfg.Documents.MaxContentLength)
	assert.Contains(t, cfg.Documents.AllowedExtensions, "pdf")
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TEST_LIST_VAR", " PDF, csv ,,")
	assert.Equal(t, []string{"pdf", "csv"}, getEnvList("TEST_LIST_VAR", nil))

	t.Setenv("TEST_LIST_VAR", " , ")
	assert.Equal(t, []string{"x"}, getEnvList("TEST_LIST_VAR", []string{"x"}))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION_VAR", "5s")
	assert.Equal(t, 5*time.Second, getEnvDuration("TEST_DURATION_VAR", time.Minute))

	t.Setenv("TEST_DURATION_VAR", "-1s")
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION_VAR", time.Minute))

	t.Setenv("TEST_DURATION_VAR", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION_VAR", time.Minute))
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())
}
