package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/service"
	"github.com/spf13/cobra"
)

func batchCmd() *cobra.Command {
	var (
		apply     bool
		threshold float64
		workers   int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Suggest accounts for every unbooked transaction",
		Long: `Run the suggestion engine over all stored transactions that have neither
an account nor an explanation.

With --apply, the top suggestion is booked when its confidence reaches
--threshold. Interrupting keeps everything already booked.`,
		Example: `  tally batch
  tally batch --apply --threshold 0.9`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("--threshold must be within [0,1], got %v", threshold)
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Suggestions booked so far were kept.")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			pending, err := a.store.GetTransactions(ctx, service.TransactionFilter{Unbooked: true, Limit: limit})
			if err != nil {
				return fmt.Errorf("failed to load pending transactions: %w", err)
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Nothing to do: every transaction is booked"))
				return nil
			}

			history, err := a.store.GetHistory(ctx)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			accounts, err := a.store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to load accounts: %w", err)
			}

			progress := cli.NewProgress(cmd.ErrOrStderr(), len(pending), "Suggesting")
			results, summary, runErr := a.predictor.SuggestBatch(ctx, pending, history, accounts, engine.BatchOptions{
				Workers:  workers,
				Progress: progress.Step,
			})
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("batch failed: %w", runErr)
			}

			applied := 0
			out := cmd.OutOrStdout()
			for _, r := range results {
				top := r.Suggestions.Top()
				if top == nil {
					continue
				}
				if !apply {
					label := r.Transaction.Date.Format("2006-01-02") + " " + r.Transaction.Description
					fmt.Fprintln(out, cli.RenderCandidates(label, r.Suggestions))
					continue
				}
				if top.Confidence < threshold {
					continue
				}
				// A fresh context so bookings finish after an interrupt.
				if err := a.store.BookTransaction(context.WithoutCancel(ctx), r.Transaction.ID, top.Target, ""); err != nil {
					return fmt.Errorf("failed to book %s: %w", r.Transaction.ID, err)
				}
				applied++
			}

			fmt.Fprintln(out, cli.RenderBatchSummary(summary, applied))
			if runErr != nil {
				return fmt.Errorf("batch interrupted after %d of %d transactions: %w", len(results), len(pending), runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "book the top suggestion when it reaches --threshold")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.9, "minimum confidence for --apply")
	cmd.Flags().IntVarP(&workers, "workers", "w", engine.DefaultBatchOptions().Workers, "parallel workers")
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most this many transactions (0 = all)")

	return cmd
}
