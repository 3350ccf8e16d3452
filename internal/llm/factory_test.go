package llm

import (
	"testing"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		wantErr  error
		wantType any
		name     string
		cfg      config.LLM
	}{
		{name: "openai", cfg: config.LLM{Provider: "openai", APIKey: "k"}, wantType: &openAIClient{}},
		{name: "anthropic mixed case", cfg: config.LLM{Provider: "Anthropic", APIKey: "k"}, wantType: &anthropicClient{}},
		{name: "missing key", cfg: config.LLM{Provider: "openai"}, wantErr: common.ErrMissingConfig},
		{name: "unknown provider", cfg: config.LLM{Provider: "gemini", APIKey: "k"}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, client)
		})
	}
}
