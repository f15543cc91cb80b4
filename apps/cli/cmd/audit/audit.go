package auditcmd

import (
	"github.com/spf13/cobra"
)

// Command groups audit ledger helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit ledger utilities (replay/export)",
	}
	cmd.AddCommand(replayCommand(), exportCommand())
	return cmd
}
