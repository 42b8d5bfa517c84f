package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "automail.db", cfg.Database.DSN())
	assert.Equal(t, 800*time.Millisecond, cfg.Dispatch.Interval)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Mail.DryRun)
	assert.Equal(t, time.Minute, cfg.Security.RateLimiting.Window)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTOMAIL_DISPATCH_INTERVAL", "2s")
	t.Setenv("AUTOMAIL_MAIL_DRY_RUN", "true")
	t.Setenv("AUTOMAIL_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.Interval)
	assert.True(t, cfg.Mail.DryRun)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("AUTOMAIL_DATABASE_DRIVER", "oracle")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNegativeInterval(t *testing.T) {
	t.Setenv("AUTOMAIL_DISPATCH_INTERVAL", "-1s")
	_, err := Load()
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	db := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		Name:     "automail",
		User:     "mailer",
		Password: "pw",
		SSLMode:  "disable",
	}
	dsn := db.DSN()
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "dbname=automail")
	assert.Contains(t, dsn, "sslmode=disable")
}
