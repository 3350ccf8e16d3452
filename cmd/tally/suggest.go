package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/spf13/cobra"
)

func suggestCmd() *cobra.Command {
	var amount, explanation string

	cmd := &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest accounts for a transaction",
		Long: `Rank candidate accounts for a transaction description using booked
history, keyword rules and, when local evidence is weak, the language model.`,
		Example: `  tally suggest "Office Rent Payment" --amount -1500
  tally suggest "AMZN Mktp US" --explanation "printer paper"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			description := strings.Join(args, " ")

			value, err := parseAmountFlag(amount)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			history, err := a.store.GetHistory(ctx)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			accounts, err := a.store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to load accounts: %w", err)
			}

			candidates := a.predictor.GetSuggestions(ctx, engine.Request{
				Description: description,
				Explanation: explanation,
				Amount:      value,
				History:     history,
				Accounts:    accounts,
			})
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCandidates(description, candidates))
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "transaction amount (negative for debits)")
	cmd.Flags().StringVarP(&explanation, "explanation", "e", "", "free-text explanation passed to the model")

	return cmd
}

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <description>",
		Short: "Suggest an explanation for a transaction",
		Long: `Reuse the explanation of the closest booked transaction, or ask the
language model when history has none.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			description := strings.Join(args, " ")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			history, err := a.store.GetHistory(ctx)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}

			suggestion, err := a.predictor.SuggestExplanation(ctx, description, history)
			if errors.Is(err, common.ErrInsufficientData) {
				return common.NewUserError(fmt.Sprintf("No explanation found for %q", description), err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderExplanation(suggestion))
			return nil
		},
	}
}
