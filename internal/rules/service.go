package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

// Manager is a RuleStore that also supports rule administration.
type Manager interface {
	RuleStore
	CreateKeywordRule(ctx context.Context, rule *model.KeywordRule) error
	ListKeywordRules(ctx context.Context, includeInactive bool) ([]model.KeywordRule, error)
	DeactivateKeywordRule(ctx context.Context, id int) error
	UpdateKeywordRulePriority(ctx context.Context, id, priority int) error
}

// Service classifies against the cached rule set and keeps the cache
// coherent with rule mutations.
type Service struct {
	store   Manager
	cache   *Cache
	logger  *slog.Logger
	engine  *Engine
	version uint64
	mu      sync.Mutex
}

// NewService creates a service over store with the given cache TTL.
func NewService(store Manager, ttl time.Duration, logger *slog.Logger) *Service {
	logger = common.LoggerOrDefault(logger)
	return &Service{
		store:  store,
		cache:  NewCache(store, ttl),
		logger: logger,
		engine: NewEngine(logger),
	}
}

// Engine returns an engine loaded with the current rule snapshot. A new
// engine is built only when the cache hands back a new snapshot.
func (s *Service) Engine(ctx context.Context) (*Engine, error) {
	rules, version, err := s.cache.Rules(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if version != s.version {
		engine := NewEngine(s.logger)
		loaded := engine.Load(rules)
		s.engine = engine
		s.version = version
		s.logger.Debug("keyword rules loaded", "rules", len(rules), "accepted", loaded, "version", version)
	}
	return s.engine, nil
}

// Classify runs the keyword rule engine over description.
func (s *Service) Classify(ctx context.Context, description string) (model.Candidates, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}
	return engine.Classify(description), nil
}

// AddRule validates and persists a rule, then invalidates the cache.
func (s *Service) AddRule(ctx context.Context, rule *model.KeywordRule) error {
	if err := ValidateRule(*rule); err != nil {
		s.logger.Warn("rejected rule", "pattern", rule.Pattern, "error", err)
		return err
	}
	if !rule.IsRegex {
		rule.Pattern = model.NormalizeKeyword(rule.Pattern)
	}
	rule.IsActive = true

	if err := s.store.CreateKeywordRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	s.cache.Invalidate()

	s.logger.Info("added rule", "id", rule.ID, "category", rule.Category, "regex", rule.IsRegex)
	return nil
}

// Deactivate disables a rule, then invalidates the cache.
func (s *Service) Deactivate(ctx context.Context, id int) error {
	if err := s.store.DeactivateKeywordRule(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate rule %d: %w", id, err)
	}
	s.cache.Invalidate()
	return nil
}

// UpdatePriority changes a rule priority, then invalidates the cache.
func (s *Service) UpdatePriority(ctx context.Context, id, priority int) error {
	if err := ValidatePriority(priority); err != nil {
		return err
	}
	if err := s.store.UpdateKeywordRulePriority(ctx, id, priority); err != nil {
		return fmt.Errorf("failed to update rule %d: %w", id, err)
	}
	s.cache.Invalidate()
	return nil
}

// List returns the stored rules.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]model.KeywordRule, error) {
	return s.store.ListKeywordRules(ctx, includeInactive)
}

// Invalidate drops the cached snapshot.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

// Seed stores the default rules when the store holds none.
func (s *Service) Seed(ctx context.Context) (int, error) {
	existing, err := s.store.ListKeywordRules(ctx, true)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	seeded := 0
	for _, rule := range DefaultRules() {
		if err := s.AddRule(ctx, &rule); err != nil {
			return seeded, err
		}
		seeded++
	}
	return seeded, nil
}

// Stats summarizes stored rules and the cache state.
func (s *Service) Stats(ctx context.Context) (model.RuleStats, error) {
	all, err := s.store.ListKeywordRules(ctx, true)
	if err != nil {
		return model.RuleStats{}, err
	}

	var stats model.RuleStats
	stats.Total = len(all)
	for _, rule := range all {
		if !rule.IsActive {
			continue
		}
		stats.Active++
		if rule.IsRegex {
			stats.Regex++
		} else {
			stats.Keyword++
		}
	}

	stats.CachedRules, stats.CacheAge, stats.Cached = s.cache.Snapshot()
	return stats, nil
}

// ValidateRule checks a rule before it is stored.
func ValidateRule(rule model.KeywordRule) error {
	if model.NormalizeKeyword(rule.Pattern) == "" {
		return fmt.Errorf("%w: pattern is required", common.ErrInvalidRule)
	}
	if rule.Category == "" {
		return fmt.Errorf("%w: category is required", common.ErrInvalidRule)
	}
	if err := ValidatePriority(rule.Priority); err != nil {
		return err
	}
	if rule.IsRegex {
		if _, err := common.CompileRulePattern(rule.Pattern); err != nil {
			return err
		}
	}
	return nil
}
