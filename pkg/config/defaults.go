package config

import "time"

// Built-in defaults, applied for any value left unset in the operator's
// YAML. Mirrors the teacher's pattern of a single built-in baseline merged
// with user overrides (pkg/config/builtin.go in the teacher repo).
const (
	DefaultBufferCapacity = 4096

	DefaultWriterBatchSize       = 256
	DefaultWriterFlushIntervalMs = 1000
	DefaultWriterThreads         = 1

	DefaultGuardRatePerMinute        = 60
	DefaultGuardRatePerHour          = 1000
	DefaultGuardInputMinChars        = 1
	DefaultGuardInputMaxChars        = 10000
	DefaultGuardSystemPromptMaxChars = 20000
	DefaultGuardUnicodeMaxZeroWidth  = 0.10
	DefaultGuardTopicDriftThreshold  = 0.7

	DefaultQuotaWarningPercent = 0.9

	DefaultRequestTimeoutMs = 30_000

	DefaultRetryMaxAttempts    = 3
	DefaultRetryInitialDelayMs = 500
	DefaultRetryMultiplier     = 2.0
	DefaultRetryMaxDelayMs     = 10_000
)

// Defaults returns a fully populated Config using only built-in defaults,
// used as the base that YAML overrides are merged onto.
func Defaults() *Config {
	return &Config{
		Buffer: BufferConfig{Capacity: DefaultBufferCapacity},
		Writer: WriterConfig{
			BatchSize:       DefaultWriterBatchSize,
			FlushIntervalMs: DefaultWriterFlushIntervalMs,
			FlushInterval:   DefaultWriterFlushIntervalMs * time.Millisecond,
			Threads:         DefaultWriterThreads,
		},
		Guard: GuardConfig{
			RatePerMinute:        DefaultGuardRatePerMinute,
			RatePerHour:          DefaultGuardRatePerHour,
			TenantRateLimits:     map[string]TenantRateLimit{},
			InputMinChars:        DefaultGuardInputMinChars,
			InputMaxChars:        DefaultGuardInputMaxChars,
			SystemPromptMaxChars: DefaultGuardSystemPromptMaxChars,
			UnicodeMaxZeroWidth:  DefaultGuardUnicodeMaxZeroWidth,
			TopicDriftThreshold:  DefaultGuardTopicDriftThreshold,
		},
		Quota: QuotaConfig{WarningPercent: DefaultQuotaWarningPercent},
		Request: RequestConfig{
			TimeoutMs: DefaultRequestTimeoutMs,
			Timeout:   DefaultRequestTimeoutMs * time.Millisecond,
		},
		Retry: RetryConfig{
			MaxAttempts:    DefaultRetryMaxAttempts,
			InitialDelayMs: DefaultRetryInitialDelayMs,
			InitialDelay:   DefaultRetryInitialDelayMs * time.Millisecond,
			Multiplier:     DefaultRetryMultiplier,
			MaxDelayMs:     DefaultRetryMaxDelayMs,
			MaxDelay:       DefaultRetryMaxDelayMs * time.Millisecond,
		},
	}
}
