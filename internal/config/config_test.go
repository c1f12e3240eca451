//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Parse([]byte("database:\n  url: postgres://localhost/test\n"), false)
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, ":8080", cfg.HTTP.Addr)
		assert.Equal(t, int64(8), cfg.Billing.PremiumFee)
		assert.Equal(t, 1, cfg.Billing.Concurrency)
		assert.Equal(t, "0 * * * *", cfg.Billing.Cron)
		assert.Equal(t, time.Hour, cfg.Redis.TTL)
		assert.Equal(t, "en", cfg.Notifications.Language)
	})

	t.Run("should expand environment references", func(t *testing.T) {
		t.Setenv("CITYGUIDE_DB_URL", "postgres://env/db")
		t.Setenv("CITYGUIDE_ADMIN_KEY", "s3cret")

		cfg, err := Parse([]byte("database:\n  url: ${CITYGUIDE_DB_URL}\nsecurity:\n  admin_api_key: ${CITYGUIDE_ADMIN_KEY}\n"), true)
		require.NoError(t, err)

		assert.Equal(t, "postgres://env/db", cfg.Database.URL)
		assert.Equal(t, "s3cret", cfg.Security.AdminAPIKey)
		assert.True(t, cfg.Runtime.Dev)
	})

	t.Run("should require a database url", func(t *testing.T) {
		_, err := Parse([]byte("log:\n  level: debug\n"), false)
		assert.Error(t, err)
	})

	t.Run("should keep explicit billing settings", func(t *testing.T) {
		raw := "database:\n  url: x\nbilling:\n  premium_fee: 12\n  concurrency: 4\n  lock_ttl: 5m\n"
		cfg, err := Parse([]byte(raw), false)
		require.NoError(t, err)

		assert.Equal(t, int64(12), cfg.Billing.PremiumFee)
		assert.Equal(t, 4, cfg.Billing.Concurrency)
		assert.Equal(t, 5*time.Minute, cfg.Billing.LockTTL)
	})
}

func TestLoad(t *testing.T) {
	t.Run("should fail on a missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
		assert.Error(t, err)
	})

	t.Run("should read a file from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("database:\n  url: postgres://file/db\n"), 0o600))

		cfg, err := Load(path, false)
		require.NoError(t, err)
		assert.Equal(t, "postgres://file/db", cfg.Database.URL)
	})
}
