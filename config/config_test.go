package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/recommend"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Recommend.Components)
	assert.Equal(t, 0.7, cfg.Recommend.CFWeight)
	assert.Equal(t, 10, cfg.Recommend.TopK)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Recommend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL.SimilarProducts)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL.Popular)
	assert.Equal(t, 512, cfg.Encoder.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
recommend:
  cf_weight: 0.5
  filter: item.score > 0.1
cache:
  backend: redis
  redis:
    addr: cache:6379
  ttl:
    popular: 10m
encoder:
  endpoint: http://clip:8080
  timeout: 5s
command_timeout: 1m
`)
	t.Setenv("MARKETREC_RECOMMEND__TOP_K", "25")
	t.Setenv("MARKETREC_CACHE__REDIS__DB", "2")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 0.5, cfg.Recommend.CFWeight)
	assert.Equal(t, 25, cfg.Recommend.TopK)
	assert.Equal(t, "item.score > 0.1", cfg.Recommend.Filter)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Popular)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Recommend)
	assert.Equal(t, 5*time.Second, cfg.Encoder.Timeout)
	assert.Equal(t, time.Minute, cfg.CommandTimeout)
}

func TestLoad_PathFromEnv(t *testing.T) {
	t.Setenv(PathEnvVar, writeConfig(t, "recommend:\n  components: 4\n"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Recommend.Components)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "weight out of range", content: "recommend:\n  cf_weight: 1.5\n"},
		{name: "unknown backend", content: "cache:\n  backend: memcached\n"},
		{name: "bad log level", content: "log:\n  level: loud\n"},
		{name: "bad endpoint", content: "encoder:\n  endpoint: not a url\n"},
		{name: "redis without addr", content: "cache:\n  backend: redis\n  redis:\n    addr: \"\"\n"},
		{name: "half storage credentials", content: "storage:\n  access_key: abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, core.IsConfiguration(err), "got %v", err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, core.IsConfiguration(err))
}

func TestDump_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Cache.Redis.Password = "hunter2"
	cfg.Storage.SecretKey = "s3cr3t"

	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, "cf_weight: 0.7")
	assert.Contains(t, out, "command_timeout: 30s")
	assert.Equal(t, "hunter2", cfg.Cache.Redis.Password)
}

func TestEngineOptions(t *testing.T) {
	rc := Default().Recommend
	rc.Filter = "item.score > 0"
	o := recommend.DefaultOptions()
	for _, opt := range rc.EngineOptions() {
		opt(&o)
	}
	assert.Equal(t, recommend.DefaultOptions().CFWeight, o.CFWeight)
	assert.Equal(t, "item.score > 0", o.Filter)
}
