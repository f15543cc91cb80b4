package auditcmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cliconfig"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

func replayCommand() *cobra.Command {
	defaults := cliconfig.Defaults()

	var (
		databaseURL string
		spoolDir    string
		tenantRole  string
	)

	c := &cobra.Command{
		Use:   "replay",
		Short: "Drain the audit spool into the ledger once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			logger, err := cliconfig.Logger("fieldops-audit-replay")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			spool, err := audit.NewFileSpool(spoolDir, logger)
			if err != nil {
				return fmt.Errorf("open spool: %w", err)
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL, ApplicationName: "fieldops-cli", MaxConns: 2})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			replayer := audit.NewReplayer(audit.ReplayerConfig{
				DB:     persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool, Role: tenantRole}),
				Store:  persistence.NewAuditStore(),
				Spool:  spool,
				Logger: logger,
			})

			replayed, err := replayer.Drain(ctx)
			if err != nil {
				logger.Error("audit replay stopped", zap.Int("replayed", replayed), zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d audit record(s) from %s\n", replayed, spoolDir)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", defaults.DatabaseURL, "PostgreSQL connection string (env DATABASE_URL)")
	c.Flags().StringVar(&spoolDir, "spool-dir", defaults.AuditSpoolDir, "audit spool directory (env AUDIT_SPOOL_DIR)")
	c.Flags().StringVar(&tenantRole, "tenant-role", defaults.DBTenantRole, "database role assumed for tenant transactions (env DB_TENANT_ROLE)")
	return c
}
