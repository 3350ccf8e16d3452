// Package engine merges pattern, keyword and language model suggestions
// into a single ranked list.
package engine

import (
	"context"
	"log/slog"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/llm"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/usage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// aiCorroborationFloor is the local confidence above which AI suggestions
// are boosted.
const aiCorroborationFloor = 0.5

// Request is one suggestion query.
type Request struct {
	Description string
	Explanation string
	Amount      decimal.Decimal
	History     []model.Transaction
	Accounts    model.Accounts
}

// HybridPredictor combines the pattern matcher, keyword rules and an
// optional language model advisor. It holds no per-call state and is safe
// for concurrent use.
type HybridPredictor struct {
	rules   RuleSource
	advisor Advisor
	matcher *pattern.Matcher
	usage   *usage.Analyzer
	logger  *slog.Logger
	cfg     config.Engine
}

// NewHybridPredictor wires the sources together. rules and advisor may be
// nil; without an advisor no escalation happens.
func NewHybridPredictor(cfg config.Engine, rules RuleSource, advisor Advisor, logger *slog.Logger) *HybridPredictor {
	logger = common.LoggerOrDefault(logger)
	return &HybridPredictor{
		rules:   rules,
		advisor: advisor,
		matcher: pattern.NewMatcher(pattern.Config{
			FuzzyThreshold: cfg.FuzzyThreshold,
			MaxCandidates:  cfg.MaxPatternCandidates,
		}, logger),
		usage:  usage.NewAnalyzer(logger),
		logger: logger,
		cfg:    cfg,
	}
}

// GetSuggestions returns up to MaxSuggestions ranked, deduplicated
// candidates. It never fails: a broken rule store or language model only
// removes that source's candidates.
func (p *HybridPredictor) GetSuggestions(ctx context.Context, req Request) model.Candidates {
	logger := p.logger.With("request_id", uuid.NewString())

	var patternCandidates, ruleCandidates model.Candidates
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		patternCandidates = p.matcher.SuggestFromPatterns(req.Description, req.Amount, req.History)
		return nil
	})
	if p.rules != nil {
		g.Go(func() error {
			candidates, err := p.rules.Classify(gctx, req.Description)
			if err != nil {
				logger.Warn("keyword rules unavailable",
					"error", err,
					"error_type", common.ErrorKind(err))
				return nil
			}
			ruleCandidates = candidates
			return nil
		})
	}
	_ = g.Wait()

	combined := make(model.Candidates, 0, len(patternCandidates)+len(ruleCandidates)+llm.MaxSuggestions)
	combined = append(combined, patternCandidates...)
	combined = append(combined, ruleCandidates...)

	localConfidence := combined.MaxConfidence()
	localReliability := combined.MaxReliability()

	escalate := p.shouldEscalate(localConfidence, localReliability)
	logger.Debug("local candidates",
		"description", req.Description,
		"pattern", len(patternCandidates),
		"keyword", len(ruleCandidates),
		"confidence", localConfidence,
		"reliability", localReliability,
		"escalate", escalate)

	if escalate {
		combined = append(combined, p.aiCandidates(ctx, logger, req, localConfidence)...)
	}

	if p.cfg.UsageEnrichment {
		p.enrichWithUsage(combined, req)
	}

	result := combined.Dedupe().TopN(p.cfg.MaxSuggestions)
	if top := result.Top(); top != nil {
		logger.Info("suggestions ready",
			"count", len(result),
			"top", top.Target,
			"type", top.Type,
			"confidence", top.Confidence)
	}
	return result
}

// shouldEscalate applies the cost-control rule: ask the model only when
// local signals are weak.
func (p *HybridPredictor) shouldEscalate(confidence, reliability float64) bool {
	if p.advisor == nil {
		return false
	}
	return confidence < p.cfg.AIThreshold ||
		(reliability < p.cfg.ReliabilityThreshold && confidence < p.cfg.HighConfidence)
}

func (p *HybridPredictor) aiCandidates(ctx context.Context, logger *slog.Logger, req Request, localConfidence float64) model.Candidates {
	if len(req.Accounts) == 0 {
		logger.Debug("skipping llm fallback without candidate accounts")
		return nil
	}

	result, err := p.advisor.SuggestAccounts(ctx, llm.AccountRequest{
		Description: req.Description,
		Explanation: req.Explanation,
		Amount:      req.Amount,
		Accounts:    req.Accounts,
	})
	if err != nil {
		logger.Warn("llm fallback failed, using local suggestions",
			"error", err,
			"error_type", common.ErrorKind(err),
			"attempts", result.Attempts)
		return nil
	}

	boosted := localConfidence > aiCorroborationFloor
	candidates := make(model.Candidates, 0, len(result.Suggestions))
	for _, s := range result.Suggestions {
		confidence := s.Confidence
		if boosted {
			confidence += p.cfg.AIBoost
		}
		candidates = append(candidates, model.MatchCandidate{
			Target:     s.Account,
			Confidence: model.Clamp01(confidence),
			Type:       model.MatchAI,
			Source:     model.SourceAI,
			AI: &model.AIMatch{
				Reasoning:     s.Reasoning,
				RawConfidence: s.Confidence,
				Boosted:       boosted,
			},
		})
	}

	logger.Debug("llm candidates",
		"count", len(candidates),
		"attempts", result.Attempts,
		"boosted", boosted)
	return candidates
}

// enrichWithUsage attaches an account usage summary to every candidate
// whose target is a known account with enough history. It changes no
// confidence; the summary only breaks ranking ties.
func (p *HybridPredictor) enrichWithUsage(candidates model.Candidates, req Request) {
	if len(req.Accounts) == 0 || len(req.History) == 0 {
		return
	}

	byAccount := make(map[string][]model.Transaction)
	for _, txn := range req.History {
		if txn.AccountRef == "" {
			continue
		}
		acct, ok := req.Accounts.Find(txn.AccountRef)
		if !ok {
			continue
		}
		txn.AccountRef = acct.Code
		byAccount[acct.Code] = append(byAccount[acct.Code], txn)
	}

	summaries := make(map[string]*model.UsageSummary)
	for i := range candidates {
		acct, ok := req.Accounts.Find(candidates[i].Target)
		if !ok {
			continue
		}
		summary, seen := summaries[acct.Code]
		if !seen {
			report := p.usage.AnalyzeAccountUsage(acct.Code, byAccount[acct.Code], nil, nil)
			if report.Status == usage.StatusOK {
				summary = report.Summary()
			}
			summaries[acct.Code] = summary
		}
		candidates[i].Usage = summary
	}
}
