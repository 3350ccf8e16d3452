package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
	"github.com/Veraticus/tally/internal/textmatch"
	"github.com/Veraticus/tally/internal/usage"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze account usage and description patterns",
	}

	cmd.AddCommand(analyzeAccountCmd())
	cmd.AddCommand(analyzePatternsCmd())

	return cmd
}

func analyzeAccountCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "account <code|name>",
		Short: "Profile how an account is used",
		Example: `  tally analyze account 5000
  tally analyze account "Rent Expense" --from 2024-01-01 --to 2024-06-30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			end, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}
			if start != nil && end != nil && end.Before(*start) {
				return fmt.Errorf("--to %s is before --from %s", to, from)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := store.GetAccount(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("Unknown account %q", args[0]), err)
			}
			if err != nil {
				return err
			}

			history, err := store.GetHistory(ctx)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			report := usage.NewAnalyzer(slog.Default()).
				AnalyzeAccountUsage(account.Code, bookedTo(*account, history), start, end)
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderUsageReport(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")

	return cmd
}

// bookedTo returns the transactions booked to account by code or by name,
// with AccountRef rewritten to the code.
func bookedTo(account model.Account, history []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(history))
	for _, txn := range history {
		if strings.EqualFold(txn.AccountRef, account.Code) || strings.EqualFold(txn.AccountRef, account.Name) {
			txn.AccountRef = account.Code
			out = append(out, txn)
		}
	}
	return out
}

func analyzePatternsCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "patterns [description]",
		Short: "Show recurring descriptions in booked history",
		Long: `Without arguments, list every description seen at least twice together
with its recurrence and amount statistics. With a description, analyze the
booked transactions similar to it.`,
		Example: `  tally analyze patterns
  tally analyze patterns "Office Rent Payment" --amount -1500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmountFlag(amount)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			history, err := a.store.GetHistory(ctx)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, cli.RenderProfiles(pattern.AnalyzePatterns(history).Profiles))
				if freq := pattern.AnalyzeFrequency(history); len(freq) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, cli.RenderFrequencyPatterns(freq))
				}
				return nil
			}

			description := strings.Join(args, " ")
			similar := similarHistory(description, history, a.cfg.FuzzyThreshold)
			if len(similar) == 0 {
				return common.NewUserError(fmt.Sprintf("No booked transactions similar to %q", description), common.ErrInsufficientData)
			}

			fmt.Fprintln(out, cli.RenderHistoricalConfidence(pattern.CalculateHistoricalConfidence(similar)))
			fmt.Fprintln(out, cli.RenderProfiles(pattern.AnalyzePatterns(similar).Profiles))
			if amount != "" {
				matcher := pattern.NewMatcher(pattern.Config{
					FuzzyThreshold: a.cfg.FuzzyThreshold,
					MaxCandidates:  a.cfg.MaxPatternCandidates,
				}, slog.Default())
				f := value.InexactFloat64()
				fmt.Fprintln(out, cli.RenderAmountPattern(f, matcher.DetectAmountPattern(description, f, history)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "compare this amount with similar transactions")
	return cmd
}

// similarHistory returns the transactions whose normalized description is
// at least threshold similar to description.
func similarHistory(description string, history []model.Transaction, threshold float64) []model.Transaction {
	norm := textmatch.Normalize(description)
	var out []model.Transaction
	for _, txn := range history {
		if textmatch.Similarity(norm, textmatch.Normalize(txn.Description)) >= threshold {
			out = append(out, txn)
		}
	}
	return out
}
