package auth

import "github.com/spf13/cobra"

// Command groups credential helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Credential helpers for local, CI and service-to-service use",
	}
	cmd.AddCommand(tokenCommand())
	return cmd
}
