package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
		Long: `Accounts are the targets suggestions may name. The language model is only
consulted when at least one account exists.`,
	}

	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsListCmd())

	return cmd
}

func accountsAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:     "add <code> <name> <category>",
		Short:   "Add or update an account",
		Example: `  tally accounts add 5000 "Rent Expense" Expenses --description "Office and warehouse rent"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account := &model.Account{
				Code:        strings.TrimSpace(args[0]),
				Name:        strings.TrimSpace(args[1]),
				Category:    strings.TrimSpace(args[2]),
				Description: description,
			}
			if err := store.SaveAccount(ctx, account); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Saved account %s %s", account.Code, account.Name)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "what the account is used for")
	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccounts(accounts))
			return nil
		},
	}
}
