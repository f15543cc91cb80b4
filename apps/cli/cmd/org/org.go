package orgcmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cliconfig"
	"github.com/zenGate-Global/palmyra-fieldops/domains/organizations/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/domains/organizations/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

// Command groups organization registry helpers.
func Command() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "org",
		Short: "Organization registry utilities (create/list/suspend/activate)",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", cliconfig.Defaults().DatabaseURL, "PostgreSQL connection string (env DATABASE_URL)")

	cmd.AddCommand(
		createCommand(&databaseURL),
		listCommand(&databaseURL),
		statusCommand(&databaseURL, "suspend", "Suspend an organization; its credentials stop authenticating", (*service.Service).Suspend),
		statusCommand(&databaseURL, "activate", "Re-activate a suspended organization", (*service.Service).Activate),
	)
	return cmd
}

// withService opens a pool, runs fn against the registry and closes the pool.
func withService(ctx context.Context, databaseURL string, fn func(*service.Service) error) error {
	if databaseURL == "" {
		return fmt.Errorf("--database-url (or DATABASE_URL) is required")
	}
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL, ApplicationName: "fieldops-cli", MaxConns: 2})
	if err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	defer persistence.ClosePool(pool)

	return fn(newService(pool))
}

func newService(pool *pgxpool.Pool) *service.Service {
	db := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool})
	return service.New(repo.NewPostgresRepository(db, persistence.NewOrganizationStore()))
}

func createCommand(databaseURL *string) *cobra.Command {
	var input service.CreateInput

	c := &cobra.Command{
		Use:   "create",
		Short: "Register a new active organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), *databaseURL, func(svc *service.Service) error {
				org, err := svc.Create(cmd.Context(), input)
				if err != nil {
					return fmt.Errorf("create organization: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Organization created: %s (%s)\n", org.Slug, org.ID)
				return nil
			})
		},
	}

	c.Flags().StringVar(&input.Slug, "slug", "", "unique organization slug")
	c.Flags().StringVar(&input.Name, "name", "", "display name")
	_ = c.MarkFlagRequired("slug")
	_ = c.MarkFlagRequired("name")
	return c
}

func listCommand(databaseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), *databaseURL, func(svc *service.Service) error {
				orgs, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, o := range orgs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", o.ID, o.Slug, o.Status, o.Name)
				}
				return nil
			})
		},
	}
}

func statusCommand(databaseURL *string, use, short string, apply func(*service.Service, context.Context, uuid.UUID) (service.Organization, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <organization-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("organization id: %w", err)
			}
			return withService(cmd.Context(), *databaseURL, func(svc *service.Service) error {
				org, err := apply(svc, cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Organization %s is now %s\n", org.Slug, org.Status)
				return nil
			})
		},
	}
}
