package config

import "fmt"

// Validate performs the validation pass described by the teacher's
// pkg/config/validator.go pattern: one method per sub-config, each
// returning a *ValidationError wrapped with its component name.
func Validate(cfg *Config) error {
	if err := validateBuffer(cfg.Buffer); err != nil {
		return err
	}
	if err := validateWriter(cfg.Writer); err != nil {
		return err
	}
	if err := validateGuard(cfg.Guard); err != nil {
		return err
	}
	if err := validateQuota(cfg.Quota); err != nil {
		return err
	}
	if err := validateRequest(cfg.Request); err != nil {
		return err
	}
	if err := validateRetry(cfg.Retry); err != nil {
		return err
	}
	return nil
}

func validateBuffer(b BufferConfig) error {
	if b.Capacity < 0 {
		return NewValidationError("buffer", "capacity", fmt.Errorf("must be non-negative, got %d", b.Capacity))
	}
	return nil
}

func validateWriter(w WriterConfig) error {
	if w.BatchSize <= 0 {
		return NewValidationError("writer", "batch_size", fmt.Errorf("must be positive, got %d", w.BatchSize))
	}
	if w.FlushIntervalMs <= 0 {
		return NewValidationError("writer", "flush_interval_ms", fmt.Errorf("must be positive, got %d", w.FlushIntervalMs))
	}
	if w.Threads <= 0 {
		return NewValidationError("writer", "threads", fmt.Errorf("must be positive, got %d", w.Threads))
	}
	return nil
}

func validateGuard(g GuardConfig) error {
	if g.RatePerMinute <= 0 {
		return NewValidationError("guard", "rate_per_minute", fmt.Errorf("must be positive, got %d", g.RatePerMinute))
	}
	if g.RatePerHour <= 0 {
		return NewValidationError("guard", "rate_per_hour", fmt.Errorf("must be positive, got %d", g.RatePerHour))
	}
	for tenantID, override := range g.TenantRateLimits {
		if override.RatePerMinute <= 0 || override.RatePerHour <= 0 {
			return NewValidationError("guard", "tenant_rate_limits",
				fmt.Errorf("tenant %q override must have positive rates", tenantID))
		}
	}
	if g.InputMinChars < 0 {
		return NewValidationError("guard", "input_min_chars", fmt.Errorf("must be non-negative"))
	}
	if g.InputMaxChars <= g.InputMinChars {
		return NewValidationError("guard", "input_max_chars", fmt.Errorf("must exceed input_min_chars"))
	}
	if g.SystemPromptMaxChars <= 0 {
		return NewValidationError("guard", "system_prompt_max_chars", fmt.Errorf("must be positive"))
	}
	if g.UnicodeMaxZeroWidth <= 0 || g.UnicodeMaxZeroWidth > 1 {
		return NewValidationError("guard", "unicode_max_zero_width_ratio", fmt.Errorf("must be in (0, 1]"))
	}
	if g.TopicDriftThreshold <= 0 || g.TopicDriftThreshold > 1 {
		return NewValidationError("guard", "topic_drift_threshold", fmt.Errorf("must be in (0, 1]"))
	}
	return nil
}

func validateQuota(q QuotaConfig) error {
	if q.WarningPercent <= 0 || q.WarningPercent > 1 {
		return NewValidationError("quota", "warning_percent", fmt.Errorf("must be in (0, 1], got %v", q.WarningPercent))
	}
	return nil
}

func validateRequest(r RequestConfig) error {
	if r.TimeoutMs <= 0 {
		return NewValidationError("request", "timeout_ms", fmt.Errorf("must be positive, got %d", r.TimeoutMs))
	}
	return nil
}

func validateRetry(r RetryConfig) error {
	if r.MaxAttempts < 1 {
		return NewValidationError("retry", "max_attempts", fmt.Errorf("must be at least 1, got %d", r.MaxAttempts))
	}
	if r.InitialDelayMs <= 0 {
		return NewValidationError("retry", "initial_delay_ms", fmt.Errorf("must be positive"))
	}
	if r.Multiplier <= 1.0 {
		return NewValidationError("retry", "multiplier", fmt.Errorf("must exceed 1.0, got %v", r.Multiplier))
	}
	if r.MaxDelayMs < r.InitialDelayMs {
		return NewValidationError("retry", "max_delay_ms", fmt.Errorf("must be >= initial_delay_ms"))
	}
	return nil
}
