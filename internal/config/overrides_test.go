package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therandomchoice/ponzi-cli/internal/config"
)

func TestApplyOverridesFromEnv(t *testing.T) {
	t.Setenv("PONZI_NETWORK", "sepolia")
	t.Setenv("PONZI_REFRESH_ON_CONFIRM", "true")
	t.Setenv("PONZI_RPC_RATE_LIMIT", "5")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, config.ApplyOverrides(cfg, config.NewViper()))

	assert.Equal(t, "sepolia", cfg.Network)
	assert.True(t, cfg.RefreshOnConfirm)
	assert.Equal(t, 5.0, cfg.RPCRateLimit)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm, "unset keys keep file values")
}

func TestApplyOverridesFromChangedFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("network", "", "")
	fs.String("listen_addr", "", "")
	require.NoError(t, fs.Parse([]string{"--network", "holesky"}))

	v := config.NewViper()
	require.NoError(t, v.BindPFlag("network", fs.Lookup("network")))
	require.NoError(t, v.BindPFlag("listen_addr", fs.Lookup("listen_addr")))

	cfg, _ := config.Load(t.TempDir())
	require.NoError(t, config.ApplyOverrides(cfg, v))

	assert.Equal(t, "holesky", cfg.Network)
	assert.Equal(t, config.DefaultListenAddr, cfg.ListenAddr, "unchanged flags do not override")
}

func TestApplyOverridesInvalidValue(t *testing.T) {
	t.Setenv("PONZI_LOG_LEVEL", "chatty")
	cfg, _ := config.Load(t.TempDir())
	err := config.ApplyOverrides(cfg, config.NewViper())
	assert.ErrorContains(t, err, "log_level")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PONZI_TEST_DOTENV=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PONZI_TEST_DOTENV") })

	require.NoError(t, config.LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("PONZI_TEST_DOTENV"))
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PONZI_TEST_KEEP=file\n"), 0o600))
	t.Setenv("PONZI_TEST_KEEP", "shell")

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "shell", os.Getenv("PONZI_TEST_KEEP"))
}
