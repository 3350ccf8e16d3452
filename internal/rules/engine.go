// Package rules classifies descriptions with literal keywords and
// priority-ordered regular expressions.
package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/model"
)

// Confidence assigned to rule hits.
const (
	RegexConfidence      = 0.9
	KeywordStep          = 0.3
	MaxKeywordConfidence = 0.8
)

type compiledRule struct {
	re       *regexp.Regexp
	pattern  string
	category string
	id       int
	priority int
}

// Engine holds the keyword sets and regex rules. It is safe for concurrent
// use; rules change only through explicit calls.
type Engine struct {
	logger     *slog.Logger
	keywords   map[string]map[string]struct{} // category -> keywords
	ruleIDs    map[string]int                 // category+keyword -> rule id
	regexRules []compiledRule
	mu         sync.RWMutex
}

// NewEngine creates an empty engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		logger:   common.LoggerOrDefault(logger),
		keywords: make(map[string]map[string]struct{}),
		ruleIDs:  make(map[string]int),
	}
}

// Load registers every active rule and returns how many were accepted.
// Invalid rules are logged and skipped.
func (e *Engine) Load(rules []model.KeywordRule) int {
	loaded := 0
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if err := e.Register(rule); err != nil {
			continue
		}
		loaded++
	}
	return loaded
}

// Register adds a single rule.
func (e *Engine) Register(rule model.KeywordRule) error {
	if rule.IsRegex {
		return e.addRegex(rule.ID, rule.Pattern, rule.Category, rule.Priority)
	}
	return e.addKeyword(rule.ID, rule.Pattern, rule.Category)
}

// AddKeyword registers a literal keyword for category.
func (e *Engine) AddKeyword(keyword, category string) error {
	return e.addKeyword(0, keyword, category)
}

// AddRegexRule registers a regular expression for category. Patterns that do
// not compile and priorities outside 1..100 are rejected and logged.
func (e *Engine) AddRegexRule(pattern, category string, priority int) error {
	return e.addRegex(0, pattern, category, priority)
}

func (e *Engine) addKeyword(id int, keyword, category string) error {
	keyword = model.NormalizeKeyword(keyword)
	if keyword == "" || category == "" {
		err := fmt.Errorf("%w: keyword and category are required", common.ErrInvalidRule)
		e.logger.Warn("rejected keyword rule", "rule_id", id, "category", category, "error", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	set, ok := e.keywords[category]
	if !ok {
		set = make(map[string]struct{})
		e.keywords[category] = set
	}
	set[keyword] = struct{}{}
	if id != 0 {
		e.ruleIDs[category+"\x00"+keyword] = id
	}
	return nil
}

func (e *Engine) addRegex(id int, pattern, category string, priority int) error {
	if err := ValidatePriority(priority); err != nil {
		e.logger.Warn("rejected regex rule", "rule_id", id, "pattern", pattern, "error", err)
		return err
	}
	if category == "" {
		err := fmt.Errorf("%w: category is required", common.ErrInvalidRule)
		e.logger.Warn("rejected regex rule", "rule_id", id, "pattern", pattern, "error", err)
		return err
	}

	re, err := common.CompileRulePattern(pattern)
	if err != nil {
		e.logger.Warn("rejected regex rule", "rule_id", id, "pattern", pattern, "error", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.regexRules = append(e.regexRules, compiledRule{
		re:       re,
		pattern:  pattern,
		category: category,
		id:       id,
		priority: priority,
	})
	sort.SliceStable(e.regexRules, func(i, j int) bool {
		return e.regexRules[i].priority > e.regexRules[j].priority
	})
	return nil
}

// ValidatePriority checks a regex rule priority.
func ValidatePriority(priority int) error {
	if priority < config.MinRulePriority || priority > config.MaxRulePriority {
		return fmt.Errorf("%w: priority %d outside %d..%d",
			common.ErrInvalidRule, priority, config.MinRulePriority, config.MaxRulePriority)
	}
	return nil
}

// Reset drops every registered rule.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.keywords = make(map[string]map[string]struct{})
	e.ruleIDs = make(map[string]int)
	e.regexRules = nil
}

// RuleCount returns the number of regex rules and literal keywords held.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.regexRules)
	for _, set := range e.keywords {
		n += len(set)
	}
	return n
}

// Classify matches description against all rules. Regex rules come first
// in priority order, keyword hits follow; the result is ranked by confidence.
func (e *Engine) Classify(description string) model.Candidates {
	text := strings.ToLower(strings.TrimSpace(description))
	if text == "" {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var candidates model.Candidates

	for _, rule := range e.regexRules {
		if !rule.re.MatchString(text) {
			continue
		}
		candidates = append(candidates, model.MatchCandidate{
			Target:     rule.category,
			Confidence: RegexConfidence,
			Type:       model.MatchCustomRule,
			Source:     model.SourceKeyword,
			Rule: &model.RuleMatch{
				Pattern:  rule.pattern,
				RuleID:   rule.id,
				Priority: rule.priority,
			},
		})
	}

	categories := make([]string, 0, len(e.keywords))
	for category := range e.keywords {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		var matched []string
		ruleID := 0
		for keyword := range e.keywords[category] {
			if strings.Contains(text, keyword) {
				matched = append(matched, keyword)
				if id := e.ruleIDs[category+"\x00"+keyword]; id != 0 && ruleID == 0 {
					ruleID = id
				}
			}
		}
		if len(matched) == 0 {
			continue
		}
		sort.Strings(matched)

		candidates = append(candidates, model.MatchCandidate{
			Target:     category,
			Confidence: min(KeywordStep*float64(len(matched)), MaxKeywordConfidence),
			Type:       model.MatchKeyword,
			Source:     model.SourceKeyword,
			Rule: &model.RuleMatch{
				Keywords: matched,
				RuleID:   ruleID,
			},
		})
	}

	// Stable sort keeps regex rules in priority order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}
