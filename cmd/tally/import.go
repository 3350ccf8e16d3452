package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/statement"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var (
		account string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import transactions from OFX/QFX or CSV statements",
		Long: `Import bank transactions. Files already imported are skipped line by line,
so re-importing an overlapping statement is safe.

With --account, every imported line is booked to that account and becomes
history the engine learns from.`,
		Example: `  tally import ~/Downloads/checking_2024.qfx
  tally import rent.csv --account "Rent Expense"
  tally import ~/Downloads/*.ofx --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if account != "" {
				if _, err := store.GetAccount(ctx, account); err != nil {
					slog.Warn("booking to an account missing from the chart of accounts", "account", account)
				}
			}

			total, inserted := 0, 0
			for _, path := range files {
				batch, err := parseStatement(cmd, path)
				if err != nil {
					return err
				}
				batch.Book(account)

				for _, problem := range batch.Problems {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(fmt.Sprintf("%s: %v", filepath.Base(path), problem)))
				}
				total += len(batch.Transactions)

				if dryRun || len(batch.Transactions) == 0 {
					continue
				}
				n, err := store.SaveTransactions(ctx, batch.Transactions)
				if err != nil {
					return fmt.Errorf("failed to save %s: %w", path, err)
				}
				inserted += n

				slog.Info("imported statement",
					"file", filepath.Base(path),
					"parsed", len(batch.Transactions),
					"inserted", n,
					"problems", len(batch.Problems),
					"bank_accounts", batch.Accounts)
			}

			if dryRun {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions parsed from %d files", total, len(files))))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d duplicates skipped)", inserted, total-inserted)))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "book every imported transaction to this account")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "parse without saving")

	return cmd
}

func parseStatement(cmd *cobra.Command, path string) (statement.Batch, error) {
	parser, err := statement.ForFile(path, slog.Default())
	if err != nil {
		return statement.Batch{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return statement.Batch{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	batch, err := parser.Parse(cmd.Context(), f)
	if err != nil {
		return statement.Batch{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return batch, nil
}

// expandFiles resolves glob patterns; a pattern without matches must name
// an existing file.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("no files found matching %s", p)
		}
		files = append(files, p)
	}
	return files, nil
}
