package auditcmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/apps/cli/cliconfig"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/gcp"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/storage"
)

const (
	backendLocal = "local"
	backendGCS   = "gcs"
)

type exportOptions struct {
	databaseURL string
	tenantRole  string
	org         string
	since       string
	action      string
	backend     string
	dir         string
	bucket      string
	prefix      string
	name        string
	credentials string
	spoolDir    string
}

// filter turns the flags into a ledger filter.
func (o exportOptions) filter() (uuid.UUID, persistence.AuditFilter, error) {
	var f persistence.AuditFilter

	org, err := uuid.Parse(strings.TrimSpace(o.org))
	if err != nil {
		return uuid.Nil, f, fmt.Errorf("--org: %w", err)
	}
	if o.since != "" {
		since, err := time.Parse(time.RFC3339, o.since)
		if err != nil {
			return uuid.Nil, f, fmt.Errorf("--since must be RFC 3339: %w", err)
		}
		f.Since = &since
	}
	if o.action != "" {
		if _, ok := audit.ParseAction(o.action); !ok {
			return uuid.Nil, f, fmt.Errorf("--action: unknown action %q", o.action)
		}
		f.Action = &o.action
	}
	return org, f, nil
}

// writer builds the object backend. The returned cleanup releases clients.
func (o exportOptions) writer(ctx context.Context) (storage.ObjectWriter, func(), error) {
	switch o.backend {
	case backendLocal:
		if o.dir == "" {
			return nil, nil, errors.New("--dir is required for the local backend")
		}
		return storage.NewLocalWriter(o.dir), func() {}, nil
	case backendGCS:
		if o.bucket == "" {
			return nil, nil, errors.New("--bucket is required for the gcs backend")
		}
		client, err := gcp.NewStorageClient(ctx, o.credentials)
		if err != nil {
			return nil, nil, err
		}
		w := storage.NewGCSWriter(client, o.bucket)
		if err := w.Check(ctx, o.prefix); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return w, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want %s or %s)", o.backend, backendLocal, backendGCS)
	}
}

func exportCommand() *cobra.Command {
	defaults := cliconfig.Defaults()
	var opts exportOptions

	c := &cobra.Command{
		Use:   "export",
		Short: "Write an organization's audit records as NDJSON to local disk or Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			org, filter, err := opts.filter()
			if err != nil {
				return err
			}
			name := opts.name
			if name == "" {
				name = fmt.Sprintf("audit-%s.ndjson", time.Now().UTC().Format("20060102T150405Z"))
			}
			key, err := storage.ResolveObjectLocation(opts.prefix, org, name)
			if err != nil {
				return err
			}

			logger, err := cliconfig.Logger("fieldops-audit-export")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			objects, release, err := opts.writer(ctx)
			if err != nil {
				return err
			}
			defer release()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: opts.databaseURL, ApplicationName: "fieldops-cli", MaxConns: 2})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)
			db := persistence.NewTenantDB(persistence.TenantDBConfig{Pool: pool, Role: opts.tenantRole})

			spool, err := audit.NewFileSpool(opts.spoolDir, logger)
			if err != nil {
				return fmt.Errorf("open spool: %w", err)
			}
			recorder := audit.NewRecorder(audit.Config{
				Store:  persistence.NewAuditStore(),
				Spool:  spool,
				Logger: logger,
			})

			w, err := objects.Create(ctx, key)
			if err != nil {
				return fmt.Errorf("create %s: %w", objects.URI(key), err)
			}
			n, err := audit.Export(ctx, recorder, db, persistence.NewAuditStore(), org, filter, w)
			if err != nil {
				// Cancelling before Close discards the partial object.
				cancel()
				_ = w.Close()
				logger.Error("audit export failed", zap.String("organization_id", org.String()), zap.Error(err))
				return err
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("publish %s: %w", objects.URI(key), err)
			}

			logger.Info("audit export written",
				zap.String("organization_id", org.String()), zap.Int("records", n), zap.String("uri", objects.URI(key)))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d audit record(s) to %s\n", n, objects.URI(key))
			return nil
		},
	}

	c.Flags().StringVar(&opts.databaseURL, "database-url", defaults.DatabaseURL, "PostgreSQL connection string (env DATABASE_URL)")
	c.Flags().StringVar(&opts.tenantRole, "tenant-role", defaults.DBTenantRole, "database role assumed for tenant transactions (env DB_TENANT_ROLE)")
	c.Flags().StringVar(&opts.org, "org", "", "organization id")
	c.Flags().StringVar(&opts.since, "since", "", "only records at or after this RFC 3339 time")
	c.Flags().StringVar(&opts.action, "action", "", "only records with this action (e.g. quote.status.update)")
	c.Flags().StringVar(&opts.backend, "backend", backendLocal, "object backend: local or gcs")
	c.Flags().StringVar(&opts.dir, "dir", "", "output directory for the local backend")
	c.Flags().StringVar(&opts.bucket, "bucket", "", "bucket for the gcs backend")
	c.Flags().StringVar(&opts.prefix, "prefix", "audit-exports", "object key prefix")
	c.Flags().StringVar(&opts.name, "name", "", "object name (default audit-<timestamp>.ndjson)")
	c.Flags().StringVar(&opts.credentials, "credentials", defaults.FirebaseConfig, "service account file for the gcs backend (env FIREBASE_CONFIG)")
	c.Flags().StringVar(&opts.spoolDir, "spool-dir", defaults.AuditSpoolDir, "audit spool directory for the export's own record (env AUDIT_SPOOL_DIR)")

	_ = c.MarkFlagRequired("org")
	return c
}
