package config

import (
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/spf13/viper"
)

// Rule priorities accepted by the keyword rule engine.
const (
	MinRulePriority = 1
	MaxRulePriority = 100
)

// Engine holds the tunables of the suggestion engine.
type Engine struct {
	FuzzyThreshold       float64
	AIThreshold          float64
	ReliabilityThreshold float64
	HighConfidence       float64
	AIBoost              float64
	MaxSuggestions       int
	MaxPatternCandidates int
	RuleCacheTTL         time.Duration
	UsageEnrichment      bool
}

// DefaultEngine returns the stock engine settings.
func DefaultEngine() Engine {
	return Engine{
		FuzzyThreshold:       0.85,
		AIThreshold:          0.7,
		ReliabilityThreshold: 0.7,
		HighConfidence:       0.9,
		AIBoost:              0.1,
		MaxSuggestions:       3,
		MaxPatternCandidates: 5,
		RuleCacheTTL:         5 * time.Minute,
		UsageEnrichment:      true,
	}
}

// SetEngineDefaults registers the engine defaults on v.
func SetEngineDefaults(v *viper.Viper) {
	d := DefaultEngine()
	v.SetDefault("engine.fuzzy_threshold", d.FuzzyThreshold)
	v.SetDefault("engine.ai_threshold", d.AIThreshold)
	v.SetDefault("engine.reliability_threshold", d.ReliabilityThreshold)
	v.SetDefault("engine.high_confidence", d.HighConfidence)
	v.SetDefault("engine.ai_boost", d.AIBoost)
	v.SetDefault("engine.max_suggestions", d.MaxSuggestions)
	v.SetDefault("engine.max_pattern_candidates", d.MaxPatternCandidates)
	v.SetDefault("engine.rule_cache_ttl", d.RuleCacheTTL)
	v.SetDefault("engine.usage_enrichment", d.UsageEnrichment)
}

// LoadEngine reads engine settings from v and validates them.
func LoadEngine(v *viper.Viper) (Engine, error) {
	SetEngineDefaults(v)

	cfg := Engine{
		FuzzyThreshold:       v.GetFloat64("engine.fuzzy_threshold"),
		AIThreshold:          v.GetFloat64("engine.ai_threshold"),
		ReliabilityThreshold: v.GetFloat64("engine.reliability_threshold"),
		HighConfidence:       v.GetFloat64("engine.high_confidence"),
		AIBoost:              v.GetFloat64("engine.ai_boost"),
		MaxSuggestions:       v.GetInt("engine.max_suggestions"),
		MaxPatternCandidates: v.GetInt("engine.max_pattern_candidates"),
		RuleCacheTTL:         v.GetDuration("engine.rule_cache_ttl"),
		UsageEnrichment:      v.GetBool("engine.usage_enrichment"),
	}

	if err := cfg.Validate(); err != nil {
		return Engine{}, err
	}
	return cfg, nil
}

// Validate checks that every threshold lies in range.
func (e Engine) Validate() error {
	unit := map[string]float64{
		"fuzzy_threshold":       e.FuzzyThreshold,
		"ai_threshold":          e.AIThreshold,
		"reliability_threshold": e.ReliabilityThreshold,
		"high_confidence":       e.HighConfidence,
		"ai_boost":              e.AIBoost,
	}
	for name, value := range unit {
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: engine.%s must be within [0,1], got %v", common.ErrInvalidConfig, name, value)
		}
	}

	if e.MaxSuggestions < 1 {
		return fmt.Errorf("%w: engine.max_suggestions must be positive", common.ErrInvalidConfig)
	}
	if e.MaxPatternCandidates < 1 {
		return fmt.Errorf("%w: engine.max_pattern_candidates must be positive", common.ErrInvalidConfig)
	}
	if e.RuleCacheTTL < 0 {
		return fmt.Errorf("%w: engine.rule_cache_ttl cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// LLM holds provider and resilience settings for the AI fallback.
type LLM struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	RateLimit   int
	Timeout     time.Duration
	Retry       common.RetryPolicy
}

// LoadLLM reads llm.* settings. A missing API key is not an error; callers
// treat it as "AI fallback disabled".
func LoadLLM(v *viper.Viper) (LLM, error) {
	def := common.DefaultRetryPolicy()
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", 10*time.Second)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.retry.max_attempts", def.MaxAttempts)
	v.SetDefault("llm.retry.base_delay", def.BaseDelay)
	v.SetDefault("llm.retry.max_delay", def.MaxDelay)
	v.SetDefault("llm.retry.jitter", def.Jitter)

	cfg := LLM{
		Provider:    v.GetString("llm.provider"),
		APIKey:      v.GetString("llm.api_key"),
		Model:       v.GetString("llm.model"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Timeout:     v.GetDuration("llm.timeout"),
		Retry: common.RetryPolicy{
			MaxAttempts: v.GetInt("llm.retry.max_attempts"),
			BaseDelay:   v.GetDuration("llm.retry.base_delay"),
			MaxDelay:    v.GetDuration("llm.retry.max_delay"),
			Multiplier:  def.Multiplier,
			Jitter:      v.GetFloat64("llm.retry.jitter"),
		},
	}

	if cfg.Retry.MaxAttempts < 1 || cfg.Retry.MaxAttempts > 5 {
		return LLM{}, fmt.Errorf("%w: llm.retry.max_attempts must be between 1 and 5", common.ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		return LLM{}, fmt.Errorf("%w: llm.timeout must be positive", common.ErrInvalidConfig)
	}
	return cfg, nil
}
