package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// ReplayActor is the actor of the transaction that replays a record. The
// record keeps its original actor.
const ReplayActor = "audit-replayer"

// ReplayerConfig wires a Replayer.
type ReplayerConfig struct {
	DB       UnitOfWork
	Store    Appender
	Spool    Spool
	Metrics  *Metrics
	Logger   *zap.Logger
	MaxTries uint
	// NewBackOff overrides the retry schedule, mainly for tests.
	NewBackOff func() backoff.BackOff
}

// Replayer moves spooled records into the ledger.
type Replayer struct {
	db         UnitOfWork
	store      Appender
	spool      Spool
	metrics    *Metrics
	logger     *zap.Logger
	maxTries   uint
	newBackOff func() backoff.BackOff
}

func NewReplayer(cfg ReplayerConfig) *Replayer {
	if cfg.DB == nil || cfg.Store == nil || cfg.Spool == nil {
		panic("audit: replayer requires db, store and spool")
	}
	r := &Replayer{
		db:         cfg.DB,
		store:      cfg.Store,
		spool:      cfg.Spool,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		maxTries:   cfg.MaxTries,
		newBackOff: cfg.NewBackOff,
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.maxTries == 0 {
		r.maxTries = 5
	}
	if r.newBackOff == nil {
		r.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			return b
		}
	}
	return r
}

// Drain replays every spooled record and returns how many reached the
// ledger. Records rejected by the database as invalid stay in the spool and
// are logged. Drain stops at the first record whose retries run out, since
// the database is then most likely unavailable.
func (r *Replayer) Drain(ctx context.Context) (int, error) {
	pending, err := r.spool.Pending(ctx)
	if err != nil {
		return 0, err
	}
	r.metrics.spoolDepth.Set(float64(len(pending)))

	replayed := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}

		err := r.replay(ctx, rec)
		switch {
		case err == nil:
		case apperr.IsValidation(err):
			r.logger.Error("spooled audit record rejected",
				zap.String("audit_id", rec.ID.String()), zap.String("action", rec.Action), zap.Error(err))
			continue
		default:
			return replayed, fmt.Errorf("replay audit record %s: %w", rec.ID, err)
		}

		if err := r.spool.Remove(ctx, rec.ID); err != nil {
			return replayed, err
		}
		replayed++
		r.metrics.replayed.Inc()
		r.metrics.records.WithLabelValues(rec.Action).Inc()
		r.metrics.spoolDepth.Dec()
	}

	if replayed > 0 {
		r.logger.Info("audit spool drained", zap.Int("replayed", replayed), zap.Int("pending", len(pending)-replayed))
	}
	return replayed, nil
}

func (r *Replayer) replay(ctx context.Context, rec persistence.AuditRecord) error {
	tc := tenant.System(rec.OrganizationID, ReplayActor)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.db.WithTenant(ctx, tc, func(tx pgx.Tx) error {
			return r.store.Append(ctx, tx, rec)
		})
		if apperr.IsValidation(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("audit replay retry",
				zap.String("audit_id", rec.ID.String()), zap.Duration("next", next), zap.Error(err))
		}),
	)
	return err
}

// Run drains the spool every interval until ctx is done.
func (r *Replayer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("audit spool drain incomplete", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
