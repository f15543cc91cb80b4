package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cliconfig"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

// Command groups the embedded goose migrations.
func Command() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", cliconfig.Defaults().DatabaseURL, "Postgres connection string (env DATABASE_URL)")

	run := func(direction persistence.MigrationDirection) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if err := persistence.Migrate(cmd.Context(), databaseURL, direction); err != nil {
				return err
			}
			return printVersion(cmd, databaseURL)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run(persistence.MigrateUp)},
		&cobra.Command{Use: "down", Short: "Roll back the most recent migration", Args: cobra.NoArgs, RunE: run(persistence.MigrateDown)},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printVersion(cmd, databaseURL)
			},
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, databaseURL string) error {
	version, err := persistence.MigrationVersion(cmd.Context(), databaseURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migration version: %d\n", version)
	return nil
}
