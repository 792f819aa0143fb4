package config

import (
	"go/format"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 3, cfg.DiscoveryAttempts)
	assert.Equal(t, 3*time.Second, cfg.DiscoveryBackoff)
	assert.Equal(t, "PHPSESSID", cfg.CookieName)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	t.Setenv("SCOUT_SESSION", "from-env")
	t.Setenv("SCOUT_WORKERS", "12")
	t.Setenv("SCOUT_FETCH_TIMEOUT", "3s")
	t.Setenv("SCOUT_RESPECT_ROBOTS", "true")
	t.Setenv("SCOUT_RATE_PER_SECOND", "2.5")
	t.Setenv("SCOUT_DISCOVERY_ATTEMPTS", "not-a-number")
	t.Setenv("PORT", "9090")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "from-env", cfg.Session)
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.RespectRobots)
	assert.Equal(t, 2.5, cfg.RatePerSecond)
	assert.Equal(t, 3, cfg.DiscoveryAttempts, "unparsable values keep the default")
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoadFromEnv_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SCOUT_FETCHER=headless\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("SCOUT_FETCHER") })

	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	assert.Equal(t, "headless", cfg.Fetcher)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.yaml")
	content := `
base_url: https://mirror.example/usr
workers: 16
discovery_backoff: 500ms
allowed_origins:
  - https://scout.example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFile(path))
	assert.Equal(t, "https://mirror.example/usr", cfg.BaseURL)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.DiscoveryBackoff)
	assert.Equal(t, []string{"https://scout.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 3, cfg.DiscoveryAttempts, "keys missing from the file keep their value")
}

func TestLoadFile_Missing(t *testing.T) {
	err := DefaultConfig().LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	cfg.Fetcher = "curl"
	cfg.RangeMargin = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "fetcher")
	assert.Contains(t, err.Error(), "range_margin")
}

func TestSourceIsGofmtClean(t *testing.T) {
	src, err := os.ReadFile("config.go")
	require.NoError(t, err)
	formatted, err := format.Source(src)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), string(src))
}
