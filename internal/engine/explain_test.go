package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestExplanation(t *testing.T) {
	unexplained := monthlyRent(3)
	for i := range unexplained {
		unexplained[i].Explanation = ""
	}

	tests := []struct {
		advisor     Advisor
		wantErr     error
		name        string
		description string
		wantText    string
		wantSource  model.Source
		history     []model.Transaction
		wantBasis   bool
		wantCalls   int
	}{
		{
			name:        "exact match reuses explanation",
			description: "office rent payment",
			history:     monthlyRent(3),
			advisor:     NewMockAdvisor(),
			wantText:    "Monthly office rent",
			wantSource:  model.SourcePattern,
			wantBasis:   true,
		},
		{
			name:        "fuzzy match reuses explanation",
			description: "Office Rent Paymnt",
			history:     monthlyRent(3),
			advisor:     NewMockAdvisor(),
			wantText:    "Monthly office rent",
			wantSource:  model.SourcePattern,
			wantBasis:   true,
		},
		{
			name:        "unexplained history asks the advisor",
			description: "Office Rent Payment",
			history:     unexplained,
			advisor: &MockAdvisor{
				Explanation: llm.Explanation{Text: "Rent for the office", Confidence: 0.7},
				Attempts:    1,
			},
			wantText:   "Rent for the office",
			wantSource: model.SourceAI,
			wantCalls:  1,
		},
		{
			name:        "no history and no advisor",
			description: "Office Rent Payment",
			wantErr:     common.ErrInsufficientData,
		},
		{
			name:        "advisor failure",
			description: "Office Rent Payment",
			history:     unexplained,
			advisor:     NewFailingAdvisor(common.ErrMalformedResponse, 1),
			wantErr:     common.ErrMalformedResponse,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewHybridPredictor(config.DefaultEngine(), nil, tt.advisor, nil)

			got, err := p.SuggestExplanation(context.Background(), tt.description, tt.history)

			if mock, ok := tt.advisor.(*MockAdvisor); ok {
				assert.Equal(t, tt.wantCalls, mock.ExplanationCalls())
			}
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, common.ErrInsufficientData)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantBasis, got.Basis != nil)
			assert.Greater(t, got.Confidence, 0.0)
		})
	}
}

func TestSuggestExplanation_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewHybridPredictor(config.DefaultEngine(), nil, NewMockAdvisor(), nil)
	_, err := p.SuggestExplanation(ctx, "Unknown vendor", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
