package model

import "time"

// Config holds the full application configuration.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Classify    ClassifyConfig    `yaml:"classify"`
	Cache       CacheConfig       `yaml:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Taxonomy    TaxonomyConfig    `yaml:"taxonomy"`
	Output      OutputConfig      `yaml:"output"`
}

// LLMConfig configures the remote completion provider.
type LLMConfig struct {
	// Provider name: "openai" (any OpenAI-compatible endpoint, including
	// DeepSeek) or "ollama".
	Provider string `yaml:"provider"`

	// Model name, provider-specific (e.g. "deepseek-chat").
	Model string `yaml:"model"`

	// APIKey is read from DEEPSEEK_API_KEY / OPENAI_API_KEY when empty.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout is the per-attempt request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// Proxy settings for the HTTP transport.
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// ClassifyConfig configures the resolver's retry and pacing behavior.
type ClassifyConfig struct {
	// MaxRetries is the per-call remote attempt budget (>= 1).
	MaxRetries int `yaml:"max_retries"`

	// RateLimit is the fixed delay inserted between batch records.
	RateLimit time.Duration `yaml:"rate_limit"`
}

// CacheConfig configures the classification result cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConcurrencyConfig configures parallel batch processing.
type ConcurrencyConfig struct {
	// Workers is the batch worker pool width.
	Workers int `yaml:"workers"`

	// RequestsPerSecond caps the shared upstream call rate across workers.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// TaxonomyConfig locates the classification rules source.
type TaxonomyConfig struct {
	// Path to a CSV or YAML rules file (selected by extension).
	Path string `yaml:"path"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "deepseek-chat",
			BaseURL:  "https://api.deepseek.com/v1",
			Timeout:  30,
		},
		Classify: ClassifyConfig{
			MaxRetries: 3,
			RateLimit:  500 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "", // resolved to ~/.taxon/cache at startup
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           5,
			RequestsPerSecond: 2,
			BurstSize:         1,
		},
		Taxonomy: TaxonomyConfig{
			Path: "taxonomy.csv",
		},
	}
}
