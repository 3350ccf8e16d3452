package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
)

// NewClient creates the provider client named by cfg.Provider.
func NewClient(cfg config.LLM) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm.api_key", common.ErrMissingConfig)
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg), nil
	case "anthropic":
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}
