package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// UnitOfWork opens a tenant-bound transaction. Implemented by persistence.TenantDB.
type UnitOfWork interface {
	WithTenant(ctx context.Context, tc tenant.Context, fn func(pgx.Tx) error) error
}

// Appender writes one record inside an open transaction. Implemented by
// persistence.AuditStore.
type Appender interface {
	Append(ctx context.Context, tx pgx.Tx, rec persistence.AuditRecord) error
}

var (
	// ErrNotRecorded is returned when a unit of work would commit without an audit event.
	ErrNotRecorded = errors.New("unit of work committed without an audit event")
	// ErrAlreadyRecorded is returned by a second Scope.Record call.
	ErrAlreadyRecorded = errors.New("audit event already recorded")
)

// Scope collects the single audit event of one unit of work.
type Scope struct {
	tc    tenant.Context
	event *Event
}

// NewScope returns an empty scope for tc. Repositories that do not run on
// Postgres use it directly.
func NewScope(tc tenant.Context) *Scope {
	return &Scope{tc: tc}
}

// Record validates ev and keeps it for the commit.
func (s *Scope) Record(ev Event) error {
	if s.event != nil {
		return fmt.Errorf("%w: %s after %s", ErrAlreadyRecorded, ev.Action, s.event.Action)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	s.event = &ev
	return nil
}

// Event returns the recorded event, if any.
func (s *Scope) Event() (Event, bool) {
	if s.event == nil {
		return Event{}, false
	}
	return *s.event, true
}

// Config wires a Recorder.
type Config struct {
	Store   Appender
	Spool   Spool
	Metrics *Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Recorder runs tenant units of work that end with exactly one audit record.
type Recorder struct {
	store   Appender
	spool   Spool
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewRecorder(cfg Config) *Recorder {
	if cfg.Store == nil {
		panic("audit: recorder requires a store")
	}
	r := &Recorder{
		store:   cfg.Store,
		spool:   cfg.Spool,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run executes fn inside a tenant transaction of db. fn records the
// outcome on scope and returns nil to commit, or returns an error to roll
// back the whole unit of work, audit included. After a not-found outcome is
// committed, Run returns the error given by Event.Err.
//
// When the audit insert fails, the business change still commits and the
// record goes to the spool instead.
func (r *Recorder) Run(ctx context.Context, db UnitOfWork, tc tenant.Context, fn func(tx pgx.Tx, scope *Scope) error) error {
	var (
		rec       persistence.AuditRecord
		outcome   Event
		appendErr error
	)

	err := db.WithTenant(ctx, tc, func(tx pgx.Tx) error {
		scope := NewScope(tc)
		if err := fn(tx, scope); err != nil {
			return err
		}
		ev, ok := scope.Event()
		if !ok {
			return ErrNotRecorded
		}

		built, err := r.Build(ctx, tc, ev)
		if err != nil {
			return err
		}
		rec, outcome = built, ev
		appendErr = r.store.Append(ctx, tx, rec)
		return nil
	})
	if err != nil {
		return err
	}

	if appendErr == nil {
		r.metrics.records.WithLabelValues(rec.Action).Inc()
		return outcome.Err()
	}

	r.metrics.writeFailures.Inc()
	r.logger.Error("audit insert failed, spooling record",
		zap.String("audit_id", rec.ID.String()),
		zap.String("action", rec.Action),
		zap.String("organization_id", rec.OrganizationID.String()),
		zap.Error(appendErr))
	r.fallback(context.WithoutCancel(ctx), rec)
	return outcome.Err()
}

// Build turns ev into the stored record for tc.
func (r *Recorder) Build(ctx context.Context, tc tenant.Context, ev Event) (persistence.AuditRecord, error) {
	if err := ev.Validate(); err != nil {
		return persistence.AuditRecord{}, err
	}

	payload := ev.Payload()
	payload["actor_role"] = string(tc.Role)
	if trace, ok := requesttrace.FromContext(ctx); ok && trace.RequestID != "" {
		payload["request_id"] = trace.RequestID
	}
	metadata, err := json.Marshal(payload)
	if err != nil {
		return persistence.AuditRecord{}, fmt.Errorf("encode audit metadata: %w", err)
	}

	rec := persistence.AuditRecord{
		ID:             uuid.New(),
		Action:         ev.Action.String(),
		Actor:          tc.ActorID,
		OrganizationID: tc.OrganizationID,
		Metadata:       metadata,
		CreatedAt:      r.now().UTC(),
	}
	if !ev.Action.Op.Collective() {
		id := ev.ResourceID
		rec.ResourceID = &id
	}
	return rec, nil
}

func (r *Recorder) fallback(ctx context.Context, rec persistence.AuditRecord) {
	if r.spool != nil {
		err := r.spool.Put(ctx, rec)
		if err == nil {
			r.metrics.spooled.Inc()
			r.metrics.spoolDepth.Inc()
			return
		}
		r.logger.Error("audit spool write failed", zap.String("audit_id", rec.ID.String()), zap.Error(err))
	}

	r.metrics.lost.Inc()
	r.logger.Error("audit record lost",
		zap.String("audit_id", rec.ID.String()),
		zap.String("action", rec.Action),
		zap.String("actor", rec.Actor),
		zap.String("organization_id", rec.OrganizationID.String()),
		zap.ByteString("metadata", rec.Metadata),
		zap.Time("created_at", rec.CreatedAt))
}
