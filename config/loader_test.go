package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 0.4, cfg.Gate.MinBestScore, 1e-9)
	assert.Equal(t, 3, cfg.Gate.MaxRetryRounds)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.False(t, cfg.Limit.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "corrag", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
gate:
  min_best_score: 0.5
  multi_query_fanout: 5
breaker:
  failure_threshold: 10
log:
  level: debug
  format: console
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Gate.MinBestScore, 1e-9)
	assert.Equal(t, 5, cfg.Gate.MultiQueryFanout)
	assert.Equal(t, 10, cfg.Breaker.FailureThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 0.3, cfg.Gate.MinAvgTop3Score, 1e-9, "未覆盖的字段保持默认值")
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
gate:
  min_best_score: 0.5
`)

	t.Setenv("CORRAG_GATE_MIN_BEST_SCORE", "0.6")
	t.Setenv("CORRAG_GATE_MULTI_QUERY_ENABLED", "false")
	t.Setenv("CORRAG_BREAKER_RECOVERY_TIMEOUT", "45s")
	t.Setenv("CORRAG_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("CORRAG_LOG_OUTPUT_PATHS", "stdout, stderr")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.6, cfg.Gate.MinBestScore, 1e-9, "环境变量优先于 YAML")
	assert.False(t, cfg.Gate.MultiQueryEnabled)
	assert.Equal(t, 45*time.Second, cfg.Breaker.RecoveryTimeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, []string{"stdout", "stderr"}, cfg.Log.OutputPaths)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/corrag.yaml").Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, cfg.Gate.MinBestScore, 1e-9)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "gate: [not a mapping")

	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("CORRAG_GATE_MIN_BEST_SCORE", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORRAG_GATE_MIN_BEST_SCORE")
}

func TestLoader_ValidationRejectsBadGateConfig(t *testing.T) {
	t.Setenv("CORRAG_GATE_MIN_BEST_SCORE", "2.0")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_CustomValidator(t *testing.T) {
	sentinel := errors.New("custom rule violated")

	_, err := NewLoader().
		WithValidator(func(c *Config) error { return sentinel }).
		Load()

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_GATE_MAX_RETRY_ROUNDS", "1")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Gate.MaxRetryRounds)
}

func TestMustLoad_PanicsOnBadConfig(t *testing.T) {
	path := writeConfigFile(t, "gate: [broken")
	assert.Panics(t, func() { MustLoad(path) })
}
