package llm

import "context"

// Provider is the narrow contract the resolver depends on: send one
// prompt, get the model's raw text back. Implemented by the OpenAI-
// compatible client, the Ollama client, and test doubles.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Complete sends a single completion request and returns the raw
	// response text. It blocks until response or timeout; the per-attempt
	// timeout is the provider's responsibility.
	Complete(ctx context.Context, system, user string) (string, error)

	// IsAvailable checks if the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// Config holds provider configuration.
type Config struct {
	// Provider name: "openai" (any OpenAI-compatible endpoint, including
	// DeepSeek) or "ollama".
	Provider string

	// Model name (provider-specific).
	Model string

	// APIKey for OpenAI-compatible endpoints.
	APIKey string

	// BaseURL for custom endpoints.
	BaseURL string

	// Timeout for API requests, in seconds.
	Timeout int

	// Proxy settings.
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}
