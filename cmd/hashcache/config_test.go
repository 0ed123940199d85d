package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func configCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(configCmd(t), envPrefix)
	require.NoError(t, err)
	require.Equal(t, &Config{
		Enabled:    true,
		Driver:     "redis",
		Connection: "hash",
		RedisURL:   "redis://127.0.0.1:6379",
		Database:   2,
		Codec:      "json",
		TTLPolicy:  "field",
		LogBackend: "logrus",
		LogLevel:   "warn",
		Hooks:      "none",
	}, cfg)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HASHCACHE_ENABLED", "false")
	t.Setenv("HASHCACHE_DRIVER", "memory")
	t.Setenv("HASHCACHE_PREFIX", "app")
	t.Setenv("HASHCACHE_DATABASE", "0")
	t.Setenv("HASHCACHE_TTLPOLICY", "namespace")

	cfg, err := LoadConfig(configCmd(t), envPrefix)
	require.NoError(t, err)
	require.False(t, cfg.Enabled)
	require.Equal(t, "memory", cfg.Driver)
	require.Equal(t, "app", cfg.Prefix)
	require.Zero(t, cfg.Database)
	require.Equal(t, "namespace", cfg.TTLPolicy)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: redis-kv
redisURL: redis://cache:6379
codec: msgpack
logBackend: zap
hooks: prometheus
asyncHooks: true
`), 0o600))

	cfg, err := LoadConfig(configCmd(t, "--config-file", path), envPrefix)
	require.NoError(t, err)
	require.Equal(t, "redis-kv", cfg.Driver)
	require.Equal(t, "redis://cache:6379", cfg.RedisURL)
	require.Equal(t, "msgpack", cfg.Codec)
	require.Equal(t, "zap", cfg.LogBackend)
	require.Equal(t, "prometheus", cfg.Hooks)
	require.True(t, cfg.AsyncHooks)
}

func TestLoadConfigRejectsUnknownValues(t *testing.T) {
	t.Setenv("HASHCACHE_DRIVER", "memcached")
	_, err := LoadConfig(configCmd(t), envPrefix)
	require.ErrorContains(t, err, "driver")

	t.Setenv("HASHCACHE_DRIVER", "redis")
	t.Setenv("HASHCACHE_CODEC", "xml")
	_, err = LoadConfig(configCmd(t), envPrefix)
	require.ErrorContains(t, err, "codec")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(configCmd(t, "-c", filepath.Join(t.TempDir(), "nope.yaml")), envPrefix)
	require.Error(t, err)
}
