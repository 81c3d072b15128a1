package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/yfzhou/taxon/internal/cache"
	"github.com/yfzhou/taxon/internal/classify"
	"github.com/yfzhou/taxon/internal/llm"
	"github.com/yfzhou/taxon/internal/model"
	"github.com/yfzhou/taxon/internal/taxonomy"
)

// buildConfig merges defaults, config file, environment, and flags.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	if v := viper.GetString("llm.provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("llm.base_url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := viper.GetInt("llm.timeout"); v > 0 {
		cfg.LLM.Timeout = v
	}
	if v := viper.GetInt("classify.max_retries"); v > 0 {
		cfg.Classify.MaxRetries = v
	}
	if v := viper.GetDuration("classify.rate_limit"); v > 0 {
		cfg.Classify.RateLimit = v
	}
	if v := viper.GetInt("concurrency.workers"); v > 0 {
		cfg.Concurrency.Workers = v
	}
	if v := viper.GetString("taxonomy.path"); v != "" {
		cfg.Taxonomy.Path = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	cfg.Output.Verbose = verbose

	// API key: explicit config wins, then the endpoint-specific env vars.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.Cache.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Cache.Dir = filepath.Join(home, ".taxon", "cache")
		}
	}

	return cfg
}

// loadStore loads the taxonomy once; every resolver shares it.
func loadStore(cfg *model.Config) (*taxonomy.Store, error) {
	store, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d classification rules from %s\n", store.Len(), cfg.Taxonomy.Path)
	}
	return store, nil
}

// newResolver wires provider, cache, and resolver from config.
func newResolver(cfg *model.Config, store *taxonomy.Store) (*classify.Resolver, llm.Provider, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, nil, fmt.Errorf("create LLM provider: %w", err)
	}

	resolver := classify.NewResolver(store, provider, classify.Config{
		MaxRetries: cfg.Classify.MaxRetries,
		RateLimit:  cfg.Classify.RateLimit,
	})

	if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
		resolver.SetCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL))
	}

	return resolver, provider, nil
}
