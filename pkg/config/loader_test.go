package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferCapacity, cfg.Buffer.Capacity)
	assert.Equal(t, DefaultGuardRatePerMinute, cfg.Guard.RatePerMinute)
}

func TestInitialize_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
buffer:
  capacity: 128
guard:
  rate_per_minute: 5
  rate_per_hour: 50
  tenant_rate_limits:
    acme:
      rate_per_minute: 500
      rate_per_hour: 5000
writer:
  batch_size: 10
  flush_interval_ms: 2000
  threads: 2
quota:
  warning_percent: 0.8
request:
  timeout_ms: 15000
retry:
  max_attempts: 5
  initial_delay_ms: 200
  multiplier: 1.5
  max_delay_ms: 5000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guardcore.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Buffer.Capacity)
	assert.Equal(t, 5, cfg.Guard.RatePerMinute)
	assert.Equal(t, 50, cfg.Guard.RatePerHour)
	require.Contains(t, cfg.Guard.TenantRateLimits, "acme")
	assert.Equal(t, 500, cfg.Guard.TenantRateLimits["acme"].RatePerMinute)
	assert.Equal(t, 10, cfg.Writer.BatchSize)
	assert.Equal(t, 2, cfg.Writer.Threads)
	assert.Equal(t, 0.8, cfg.Quota.WarningPercent)
	assert.Equal(t, 15000, cfg.Request.TimeoutMs)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestInitialize_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guardcore.yaml"), []byte("not: [valid"), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

func TestInitialize_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
guard:
  rate_per_minute: -1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guardcore.yaml"), []byte(yamlContent), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("GUARDCORE_TEST_VAR", "hello")
	out := ExpandEnv([]byte("value: ${GUARDCORE_TEST_VAR}"))
	assert.Equal(t, "value: hello", string(out))
}
