package main

import (
	"fmt"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on start; this command is useful to check
the schema or to prepare a database ahead of time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if status {
				store, err := storage.NewSQLiteStorage(config.ExpandPath(viper.GetString("database.path")), nil)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer func() { _ = store.Close() }()

				current, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				content := fmt.Sprintf("Database: %s\nCurrent:  %d\nLatest:   %d", store.Path(), current, storage.ExpectedSchemaVersion)
				fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Migration status", content))
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database %s is at schema version %d", store.Path(), storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without applying migrations")
	return cmd
}
