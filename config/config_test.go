package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
usage_cache:
  backend: redis
  ttl_seconds: 120
retry:
  max_attempts: 5
scheduler:
  input_queue_capacity: 512
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "redis", cfg.UsageCache.Backend)
	require.Equal(t, 120, cfg.UsageCache.TTLSeconds)
	require.Equal(t, 5, cfg.Retry.MaxAttempts)
	require.Equal(t, 512, cfg.Scheduler.InputQueueCapacity)
}

func TestLoadWithNoPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "", cfg.UsageCache.Backend)
	require.Equal(t, 0, cfg.UsageCache.TTLSeconds)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("usage_cache:\n  backend: inmem\n"), 0o644))

	t.Setenv("USAGE_CACHE_BACKEND", "rmap")
	t.Setenv("USAGE_CACHE_TTL_SEC", "30")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "rmap", cfg.UsageCache.Backend)
	require.Equal(t, 30, cfg.UsageCache.TTLSeconds)
}

func TestUsageCacheTTLDefaultsTo300Seconds(t *testing.T) {
	var c UsageCacheConfig
	require.Equal(t, 300*time.Second, c.TTL())
}
