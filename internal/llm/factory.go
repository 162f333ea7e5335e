package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/rulelens/internal/model"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name disables summaries and returns nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "anthropic", "claude":
		return NewAnthropicProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application configuration into provider configuration
func ConfigFromModel(cfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.Timeout,
		StrictValues: cfg.StrictValues,
		MaxTokens:    cfg.MaxTokens,
		HTTPProxy:    httpCfg.HTTPProxy,
		HTTPSProxy:   httpCfg.HTTPSProxy,
		NoProxy:      httpCfg.NoProxy,
	}
}
