package audit

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// ExportActor is the actor bound while an export reads the ledger.
const ExportActor = "audit-exporter"

// Reader streams ledger records. Implemented by persistence.AuditStore.
type Reader interface {
	Each(ctx context.Context, q persistence.Querier, org uuid.UUID, f persistence.AuditFilter, fn func(persistence.AuditRecord) error) error
}

// Export writes the records of org matching f to w as NDJSON, oldest first.
// It reads inside a tenant transaction of org, so row isolation applies, and
// that transaction ends with one audit_log.export record carrying the count
// and the filters. The export's own record is never part of its output. A
// failed read rolls back and leaves no record. It returns the number of
// records written.
func Export(ctx context.Context, recorder *Recorder, db UnitOfWork, reader Reader, org uuid.UUID, f persistence.AuditFilter, w io.Writer) (int, error) {
	tc := tenant.Context{OrganizationID: org, ActorID: ExportActor, Role: tenant.RoleSystem}

	var n int
	err := recorder.Run(ctx, db, tc, func(tx pgx.Tx, scope *Scope) error {
		enc := json.NewEncoder(w)
		err := reader.Each(ctx, tx, org, f, func(rec persistence.AuditRecord) error {
			if err := enc.Encode(rec); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil {
			return err
		}

		var action string
		if f.Action != nil {
			action = *f.Action
		}
		return scope.Record(Exported(n, f.Since, action))
	})
	return n, err
}
