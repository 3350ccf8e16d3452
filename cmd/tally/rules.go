package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/model"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword rules",
		Long: `Keyword rules map a word or a regular expression in a description to an
account. Regex rules outrank keywords by priority.`,
		Example: `  tally rules add rent "Rent Expense"
  tally rules add --regex '\bpayroll\b' "Salaries Expense" --priority 95
  tally rules test "Downtown office rent"`,
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesDeactivateCmd())
	cmd.AddCommand(rulesPriorityCmd())
	cmd.AddCommand(rulesStatsCmd())
	cmd.AddCommand(rulesTestCmd())

	return cmd
}

func rulesAddCmd() *cobra.Command {
	var (
		regex    bool
		priority int
	)

	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Add a keyword or regex rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rule := &model.KeywordRule{
				Pattern:  args[0],
				Category: args[1],
				Priority: priority,
				IsRegex:  regex,
			}
			if err := a.rules.AddRule(ctx, rule); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added rule %d: %s → %s", rule.ID, rule.Pattern, rule.Category)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&regex, "regex", false, "treat pattern as a regular expression")
	cmd.Flags().IntVarP(&priority, "priority", "p", 50, "rule priority (1-100, higher wins)")

	return cmd
}

func rulesListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keyword rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			list, err := a.rules.List(ctx, all)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRules(list))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include deactivated rules")
	return cmd
}

func rulesDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.rules.Deactivate(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deactivated rule %d", id)))
			return nil
		},
	}
}

func rulesPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <id> <priority>",
		Short: "Change a rule's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid priority %q: %w", args[1], err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.rules.UpdatePriority(ctx, id, priority); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %d now has priority %d", id, priority)))
			return nil
		},
	}
}

func rulesStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show rule statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			// Warm the cache so the stats reflect what classification uses.
			if _, err := a.rules.Engine(ctx); err != nil {
				return err
			}
			stats, err := a.rules.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRuleStats(stats))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <description>",
		Short: "Show which rules match a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			description := strings.Join(args, " ")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			candidates, err := a.rules.Classify(ctx, description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCandidates(description, candidates))
			return nil
		},
	}
}

func parseRuleID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid rule id %q", s)
	}
	return id, nil
}
