package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// BatchOptions configures SuggestBatch.
type BatchOptions struct {
	// Progress is called once per finished transaction, from worker
	// goroutines.
	Progress func()
	Workers  int
}

// DefaultBatchOptions returns sensible defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{Workers: 4}
}

// BatchResult holds the suggestions for one pending transaction.
type BatchResult struct {
	Suggestions model.Candidates
	Transaction model.Transaction
}

// BatchSummary describes a finished batch run.
type BatchSummary struct {
	Total          int
	WithSuggestion int
	AIBacked       int
	ProcessingTime time.Duration
}

// SuggestBatch runs GetSuggestions for every pending transaction against the
// same history and accounts, in parallel. Results keep the order of pending.
// A canceled context stops the run and returns what finished together with
// the context error.
func (p *HybridPredictor) SuggestBatch(ctx context.Context, pending, history []model.Transaction, accounts model.Accounts, opts BatchOptions) ([]BatchResult, BatchSummary, error) {
	start := time.Now()
	if opts.Workers <= 0 {
		opts.Workers = DefaultBatchOptions().Workers
	}

	work := make(chan int, len(pending))
	for i := range pending {
		work <- i
	}
	close(work)

	results := make([]BatchResult, len(pending))
	done := make([]bool, len(pending))

	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			p.batchWorker(ctx, workerID, work, pending, history, accounts, results, done, opts)
		}(w)
	}
	wg.Wait()

	finished := make([]BatchResult, 0, len(pending))
	summary := BatchSummary{}
	for i, ok := range done {
		if !ok {
			continue
		}
		r := results[i]
		finished = append(finished, r)
		summary.Total++
		if top := r.Suggestions.Top(); top != nil {
			summary.WithSuggestion++
			if top.Type == model.MatchAI {
				summary.AIBacked++
			}
		}
	}
	summary.ProcessingTime = time.Since(start)

	p.logger.Info("batch suggestions finished",
		"pending", len(pending),
		"processed", summary.Total,
		"with_suggestion", summary.WithSuggestion,
		"ai_backed", summary.AIBacked,
		"duration", summary.ProcessingTime)

	return finished, summary, ctx.Err()
}

// batchWorker drains the work channel. Each index is owned by exactly one
// worker, so results and done need no lock.
func (p *HybridPredictor) batchWorker(
	ctx context.Context,
	workerID int,
	work <-chan int,
	pending, history []model.Transaction,
	accounts model.Accounts,
	results []BatchResult,
	done []bool,
	opts BatchOptions,
) {
	for i := range work {
		if ctx.Err() != nil {
			return
		}

		txn := pending[i]
		p.logger.Debug("batch worker suggesting", "worker_id", workerID, "transaction_id", txn.ID)
		results[i] = BatchResult{
			Transaction: txn,
			Suggestions: p.GetSuggestions(ctx, Request{
				Description: txn.Description,
				Explanation: txn.Explanation,
				Amount:      txn.Amount,
				History:     history,
				Accounts:    accounts,
			}),
		}
		done[i] = true

		if opts.Progress != nil {
			opts.Progress()
		}
	}
}
