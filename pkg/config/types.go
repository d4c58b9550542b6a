package config

import "time"

// Config is the umbrella configuration object produced by Initialize and
// threaded through every component that needs tunables: the ring buffer,
// the writer, the guard pipeline, the quota enforcer, and the orchestrator's
// retry policy.
type Config struct {
	configDir string

	Buffer  BufferConfig
	Writer  WriterConfig
	Guard   GuardConfig
	Quota   QuotaConfig
	Request RequestConfig
	Retry   RetryConfig
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// BufferConfig controls the lock-free metric ring buffer (§4.1, §6.5).
type BufferConfig struct {
	// Capacity is the requested buffer size; the constructed buffer rounds
	// this up to the next power of two with a minimum of 64.
	Capacity int `yaml:"capacity"`
}

// WriterConfig controls the batching metric writer (§4.3, §6.5).
type WriterConfig struct {
	BatchSize       int           `yaml:"batch_size"`
	FlushInterval   time.Duration `yaml:"-"`
	FlushIntervalMs int           `yaml:"flush_interval_ms"`
	Threads         int           `yaml:"threads"`
}

// GuardConfig controls the guard pipeline's built-in stages (§4.5, §6.5).
type GuardConfig struct {
	RatePerMinute int `yaml:"rate_per_minute"`
	RatePerHour   int `yaml:"rate_per_hour"`

	// TenantRateLimits overrides the global defaults above for specific
	// tenants, keyed by tenant ID.
	TenantRateLimits map[string]TenantRateLimit `yaml:"tenant_rate_limits"`

	InputMinChars        int     `yaml:"input_min_chars"`
	InputMaxChars        int     `yaml:"input_max_chars"`
	SystemPromptMaxChars int     `yaml:"system_prompt_max_chars"`
	UnicodeMaxZeroWidth  float64 `yaml:"unicode_max_zero_width_ratio"`
	TopicDriftThreshold  float64 `yaml:"topic_drift_threshold"`

	EnableClassification bool `yaml:"enable_classification"`
	EnableTopicDrift     bool `yaml:"enable_topic_drift"`
}

// TenantRateLimit overrides the global rate-limit defaults for one tenant.
type TenantRateLimit struct {
	RatePerMinute int `yaml:"rate_per_minute"`
	RatePerHour   int `yaml:"rate_per_hour"`
}

// QuotaConfig controls the tenant quota enforcer (§4.7, §6.5).
type QuotaConfig struct {
	WarningPercent float64 `yaml:"warning_percent"`
}

// RequestConfig controls the orchestrator's wall-clock deadline (§5, §6.5).
type RequestConfig struct {
	TimeoutMs int           `yaml:"timeout_ms"`
	Timeout   time.Duration `yaml:"-"`
}

// RetryConfig controls LLM-call retry policy (§5, §6.5).
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialDelayMs int           `yaml:"initial_delay_ms"`
	InitialDelay   time.Duration `yaml:"-"`
	Multiplier     float64       `yaml:"multiplier"`
	MaxDelayMs     int           `yaml:"max_delay_ms"`
	MaxDelay       time.Duration `yaml:"-"`
}
