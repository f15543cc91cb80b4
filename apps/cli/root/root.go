package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the fieldops operator CLI. Subcommands
// (migrate, org, auth, audit) are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "fieldops",
	Short:         "Palmyra FieldOps operator CLI",
	Long:          "Operator utilities for Palmyra FieldOps: migrations, organizations, credentials and the audit ledger.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
