package model

import "time"

// Config is the complete rulelens configuration
type Config struct {
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
}

// SourceConfig describes the rule table artifact
type SourceConfig struct {
	Path        string   `yaml:"path" mapstructure:"path"`                 // Local path or http(s) URL
	Pivot       string   `yaml:"pivot" mapstructure:"pivot"`               // First output column
	DropColumns []string `yaml:"drop_columns" mapstructure:"drop_columns"` // Optional columns removed at load
	Format      string   `yaml:"format" mapstructure:"format"`             // auto, csv, tsv, html
}

// HTTPConfig controls remote table fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls view memoization
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format        string `yaml:"format" mapstructure:"format"` // text, table, json, markdown
	Verbose       bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" mapstructure:"include_footer"`
	Color         bool   `yaml:"color" mapstructure:"color"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // error, warn, info, debug
	Format string `yaml:"format" mapstructure:"format"` // text, logfmt, json
}

// ConcurrencyConfig controls the export worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles LLM requests during export
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional summary provider
type LLMConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model        string `yaml:"model" mapstructure:"model"`
	APIKey       string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL      string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout      int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictValues bool   `yaml:"strict_values" mapstructure:"strict_values"`
	MaxTokens    int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:        "translation_rules.csv",
			Pivot:       "WY event",
			DropColumns: []string{"SB attributes", "WY attributes"},
			Format:      "auto",
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "rulelens/0.1 (+https://github.com/ppiankov/rulelens)",
			MaxBodyBytes:  20_000_000,
			MaxRetries:    3,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Output: OutputConfig{
			Format:        "text",
			IncludeFooter: true,
			Color:         true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		LLM: LLMConfig{
			Timeout:      30,
			StrictValues: true,
			MaxTokens:    1000,
		},
	}
}
