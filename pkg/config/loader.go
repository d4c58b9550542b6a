package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the complete guardcore.yaml file structure. Only
// fields an operator wants to override need to be present; anything absent
// falls back to Defaults().
type YAMLConfig struct {
	Buffer  *BufferYAML  `yaml:"buffer"`
	Writer  *WriterYAML  `yaml:"writer"`
	Guard   *GuardYAML   `yaml:"guard"`
	Quota   *QuotaYAML   `yaml:"quota"`
	Request *RequestYAML `yaml:"request"`
	Retry   *RetryYAML   `yaml:"retry"`
}

// BufferYAML is the YAML projection of BufferConfig.
type BufferYAML struct {
	Capacity int `yaml:"capacity"`
}

// WriterYAML is the YAML projection of WriterConfig.
type WriterYAML struct {
	BatchSize       int `yaml:"batch_size"`
	FlushIntervalMs int `yaml:"flush_interval_ms"`
	Threads         int `yaml:"threads"`
}

// GuardYAML is the YAML projection of GuardConfig.
type GuardYAML struct {
	RatePerMinute        int                        `yaml:"rate_per_minute"`
	RatePerHour          int                        `yaml:"rate_per_hour"`
	TenantRateLimits     map[string]TenantRateLimit `yaml:"tenant_rate_limits"`
	InputMinChars        int                        `yaml:"input_min_chars"`
	InputMaxChars        int                        `yaml:"input_max_chars"`
	SystemPromptMaxChars int                        `yaml:"system_prompt_max_chars"`
	UnicodeMaxZeroWidth  float64                    `yaml:"unicode_max_zero_width_ratio"`
	TopicDriftThreshold  float64                    `yaml:"topic_drift_threshold"`
	EnableClassification bool                       `yaml:"enable_classification"`
	EnableTopicDrift     bool                       `yaml:"enable_topic_drift"`
}

// QuotaYAML is the YAML projection of QuotaConfig.
type QuotaYAML struct {
	WarningPercent float64 `yaml:"warning_percent"`
}

// RequestYAML is the YAML projection of RequestConfig.
type RequestYAML struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

// RetryYAML is the YAML projection of RetryConfig.
type RetryYAML struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialDelayMs int     `yaml:"initial_delay_ms"`
	Multiplier     float64 `yaml:"multiplier"`
	MaxDelayMs     int     `yaml:"max_delay_ms"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading:
//  1. Load guardcore.yaml from configDir (missing file is not an error —
//     built-in defaults apply).
//  2. Expand environment variables.
//  3. Merge onto built-in defaults (user overrides built-in).
//  4. Validate.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"buffer_capacity", cfg.Buffer.Capacity,
		"writer_threads", cfg.Writer.Threads,
		"guard_rate_per_minute", cfg.Guard.RatePerMinute)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	path := filepath.Join(configDir, "guardcore.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No guardcore.yaml found, using built-in defaults", "path", path)
			return Defaults(), nil
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	cfg := Defaults()
	cfg.configDir = configDir

	if yamlCfg.Buffer != nil && yamlCfg.Buffer.Capacity > 0 {
		cfg.Buffer.Capacity = yamlCfg.Buffer.Capacity
	}

	if yamlCfg.Writer != nil {
		if err := mergo.Merge(&cfg.Writer, writerFromYAML(yamlCfg.Writer), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge writer config: %w", err)
		}
	}

	if yamlCfg.Guard != nil {
		mergeGuardYAML(&cfg.Guard, yamlCfg.Guard)
	}

	if yamlCfg.Quota != nil && yamlCfg.Quota.WarningPercent > 0 {
		cfg.Quota.WarningPercent = yamlCfg.Quota.WarningPercent
	}

	if yamlCfg.Request != nil && yamlCfg.Request.TimeoutMs > 0 {
		cfg.Request.TimeoutMs = yamlCfg.Request.TimeoutMs
	}

	if yamlCfg.Retry != nil {
		if err := mergo.Merge(&cfg.Retry, retryFromYAML(yamlCfg.Retry), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retry config: %w", err)
		}
	}

	cfg.Writer.FlushInterval = time.Duration(cfg.Writer.FlushIntervalMs) * time.Millisecond
	cfg.Request.Timeout = time.Duration(cfg.Request.TimeoutMs) * time.Millisecond
	cfg.Retry.InitialDelay = time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond
	cfg.Retry.MaxDelay = time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond

	return cfg, nil
}

func writerFromYAML(y *WriterYAML) WriterConfig {
	return WriterConfig{BatchSize: y.BatchSize, FlushIntervalMs: y.FlushIntervalMs, Threads: y.Threads}
}

func retryFromYAML(y *RetryYAML) RetryConfig {
	return RetryConfig{
		MaxAttempts:    y.MaxAttempts,
		InitialDelayMs: y.InitialDelayMs,
		Multiplier:     y.Multiplier,
		MaxDelayMs:     y.MaxDelayMs,
	}
}

// mergeGuardYAML overrides cfg's guard config with any non-zero value
// present in the YAML, preserving defaults for anything left unset —
// including merging the tenant-override map key by key rather than
// replacing it wholesale.
func mergeGuardYAML(cfg *GuardConfig, y *GuardYAML) {
	if y.RatePerMinute > 0 {
		cfg.RatePerMinute = y.RatePerMinute
	}
	if y.RatePerHour > 0 {
		cfg.RatePerHour = y.RatePerHour
	}
	if y.InputMinChars > 0 {
		cfg.InputMinChars = y.InputMinChars
	}
	if y.InputMaxChars > 0 {
		cfg.InputMaxChars = y.InputMaxChars
	}
	if y.SystemPromptMaxChars > 0 {
		cfg.SystemPromptMaxChars = y.SystemPromptMaxChars
	}
	if y.UnicodeMaxZeroWidth > 0 {
		cfg.UnicodeMaxZeroWidth = y.UnicodeMaxZeroWidth
	}
	if y.TopicDriftThreshold > 0 {
		cfg.TopicDriftThreshold = y.TopicDriftThreshold
	}
	cfg.EnableClassification = y.EnableClassification
	cfg.EnableTopicDrift = y.EnableTopicDrift

	if cfg.TenantRateLimits == nil {
		cfg.TenantRateLimits = map[string]TenantRateLimit{}
	}
	for tenantID, override := range y.TenantRateLimits {
		cfg.TenantRateLimits[tenantID] = override
	}
}
