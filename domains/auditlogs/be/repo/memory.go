package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit/audittest"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// MemoryRepository serves a fixed set of records for tests. Listings made
// through it are committed to Ledger, not to the records.
type MemoryRepository struct {
	mu       sync.Mutex
	records  []persistence.AuditRecord
	Ledger   *audittest.Ledger
	FailWith error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{Ledger: audittest.NewLedger()}
}

// Add stores rec as if it had been committed earlier.
func (r *MemoryRepository) Add(rec persistence.AuditRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	r.records = append(r.records, rec)
}

func (r *MemoryRepository) InTenant(_ context.Context, tc tenant.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Ledger.Run(tc, func(scope *audit.Scope) error {
		return fn(&memoryTx{repo: r, org: tc.OrganizationID, scope: scope})
	}, func() {})
}

type memoryTx struct {
	repo  *MemoryRepository
	org   uuid.UUID
	scope *audit.Scope
}

func (t *memoryTx) List(_ context.Context, f persistence.AuditFilter, page paging.Page) ([]persistence.AuditRecord, int, error) {
	if t.repo.FailWith != nil {
		return nil, 0, t.repo.FailWith
	}

	var matched []persistence.AuditRecord
	for _, rec := range t.repo.records {
		switch {
		case rec.OrganizationID != t.org:
		case f.Action != nil && rec.Action != *f.Action:
		case f.ResourceID != nil && (rec.ResourceID == nil || *rec.ResourceID != *f.ResourceID):
		case f.Since != nil && rec.CreatedAt.Before(*f.Since):
		default:
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})
	return paging.Window(matched, page), len(matched), nil
}

func (t *memoryTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
