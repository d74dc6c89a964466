package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, "campusflow", cfg.Database.Postgres.Database)

	require.Equal(t, "http://feed.example.com:5000", cfg.Sources.Feed.URL)
	require.Equal(t, 3*time.Second, cfg.Sources.Feed.Timeout)
	require.True(t, cfg.Sources.Feed.SyncOnStart)
	require.Equal(t, 7*time.Second, cfg.Sources.Peer.Timeout)
	require.False(t, cfg.Sources.Peer.SyncOnStart)

	require.False(t, cfg.Reminders.Enabled)
	require.Equal(t, "@every 30s", cfg.Reminders.Schedule)
	require.Equal(t, 12*time.Hour, cfg.Reminders.Threshold())

	require.Equal(t, "/var/lib/campusflow/uploads", cfg.Uploads.Dir)
	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/campusflow.sqlite", cfg.Database.Path)
	require.Equal(t, 5*time.Second, cfg.Sources.Feed.Timeout)
	require.True(t, cfg.Reminders.Enabled)
	require.Equal(t, "@every 1m", cfg.Reminders.Schedule)
	require.Equal(t, 24*time.Hour, cfg.Reminders.Threshold())
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CAMPUSFLOW_SERVER_PORT", "9999")
	t.Setenv("CAMPUSFLOW_SOURCES_FEED_URL", "http://override:5000")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "http://override:5000", cfg.Sources.Feed.URL)
}
