package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetPersistentFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	require.NotNil(t, rootCmd.PersistentPreRunE)

	for _, name := range []string{"scan", "discover", "serve", "serve-http"} {
		sub, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
		assert.Same(t, rootCmd, sub.Root())
	}
}

func TestInitConfigReadsRootFlagsFromSubcommand(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	t.Setenv("SCOUT_WORKERS", "")
	t.Setenv("SCOUT_FETCHER", "")
	resetPersistentFlags(t)

	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("workers", "7"))
	require.NoError(t, flags.Set("session", "flag-session"))
	require.NoError(t, flags.Set("fetcher", "headless"))
	require.NoError(t, flags.Set("log-format", "json"))

	sub, _, err := rootCmd.Find([]string{"discover"})
	require.NoError(t, err)
	require.NoError(t, rootCmd.PersistentPreRunE(sub, nil))

	require.NotNil(t, cfg)
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "flag-session", cfg.Session)
	assert.Equal(t, "headless", cfg.Fetcher)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NotNil(t, logger)
}

func TestInitConfigRejectsInvalidFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCOUT_FETCHER", "")
	resetPersistentFlags(t)

	require.NoError(t, rootCmd.PersistentFlags().Set("fetcher", "carrier-pigeon"))

	sub, _, err := rootCmd.Find([]string{"scan"})
	require.NoError(t, err)
	err = rootCmd.PersistentPreRunE(sub, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
