package repo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit/audittest"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// MemoryRepository is an in-memory Repository for tests. Units of work are
// serialized; a failed unit restores the rows it started from.
type MemoryRepository struct {
	mu        sync.Mutex
	quotes    map[uuid.UUID]persistence.Quote
	contracts map[uuid.UUID]int
	projects  map[uuid.UUID]uuid.UUID
	clock     time.Time
	Ledger    *audittest.Ledger
	FailWith  error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		quotes:    make(map[uuid.UUID]persistence.Quote),
		contracts: make(map[uuid.UUID]int),
		projects:  make(map[uuid.UUID]uuid.UUID),
		clock:     time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		Ledger:    audittest.NewLedger(),
	}
}

// AddProject registers a project of org.
func (r *MemoryRepository) AddProject(org, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[id] = org
}

// SetContractCount fixes the number of contracts referencing a quote.
func (r *MemoryRepository) SetContractCount(id uuid.UUID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[id] = n
}

// Exists reports whether a quote row exists in any organization.
func (r *MemoryRepository) Exists(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.quotes[id]
	return ok
}

func (r *MemoryRepository) InTenant(_ context.Context, tc tenant.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[uuid.UUID]persistence.Quote, len(r.quotes))
	for k, v := range r.quotes {
		snapshot[k] = v
	}
	return r.Ledger.Run(tc, func(scope *audit.Scope) error {
		return fn(&memoryTx{repo: r, org: tc.OrganizationID, scope: scope})
	}, func() { r.quotes = snapshot })
}

type memoryTx struct {
	repo  *MemoryRepository
	org   uuid.UUID
	scope *audit.Scope
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (persistence.Quote, error) {
	if t.repo.FailWith != nil {
		return persistence.Quote{}, t.repo.FailWith
	}
	q, ok := t.repo.quotes[id]
	if !ok || q.OrganizationID != t.org {
		return persistence.Quote{}, apperr.ErrNotFound
	}
	return q, nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Quote, error) {
	return t.Get(ctx, id)
}

func (t *memoryTx) List(_ context.Context, f persistence.QuoteFilter, page paging.Page) ([]persistence.Quote, int, error) {
	if t.repo.FailWith != nil {
		return nil, 0, t.repo.FailWith
	}
	var matches []persistence.Quote
	for _, q := range t.repo.quotes {
		switch {
		case q.OrganizationID != t.org:
		case f.Status != nil && q.Status != *f.Status:
		case f.ProjectID != nil && q.ProjectID != *f.ProjectID:
		case f.Query != nil && !strings.Contains(strings.ToLower(q.Number+" "+q.Title), strings.ToLower(*f.Query)):
		default:
			matches = append(matches, q)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID.String() > matches[j].ID.String()
	})
	return paging.Window(matches, page), len(matches), nil
}

func (t *memoryTx) numberTaken(number string, except uuid.UUID) bool {
	for _, q := range t.repo.quotes {
		if q.OrganizationID == t.org && q.ID != except && q.Number == number {
			return true
		}
	}
	return false
}

func (t *memoryTx) Insert(_ context.Context, n persistence.NewQuote) (persistence.Quote, error) {
	if t.repo.FailWith != nil {
		return persistence.Quote{}, t.repo.FailWith
	}
	if t.numberTaken(n.Number, uuid.Nil) {
		return persistence.Quote{}, apperr.Conflict("quote number already exists")
	}
	t.repo.clock = t.repo.clock.Add(time.Second)
	payload := n.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	q := persistence.Quote{
		ID:             n.ID,
		OrganizationID: t.org,
		ProjectID:      n.ProjectID,
		Number:         n.Number,
		Title:          n.Title,
		Notes:          n.Notes,
		ValidUntil:     n.ValidUntil,
		Payload:        payload,
		PayloadSHA256:  n.PayloadSHA256,
		Status:         "draft",
		CreatedAt:      t.repo.clock,
		UpdatedAt:      t.repo.clock,
	}
	t.repo.quotes[q.ID] = q
	return q, nil
}

func (t *memoryTx) Update(ctx context.Context, id uuid.UUID, p persistence.QuotePatch) (persistence.Quote, error) {
	q, err := t.Get(ctx, id)
	if err != nil {
		return q, err
	}
	if p.Number != nil {
		if t.numberTaken(*p.Number, id) {
			return persistence.Quote{}, apperr.Conflict("quote number already exists")
		}
		q.Number = *p.Number
	}
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Notes != nil {
		q.Notes = *p.Notes
	}
	if p.ValidUntil != nil {
		q.ValidUntil = p.ValidUntil.Time
	}
	return t.save(q), nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Quote, error) {
	q, err := t.Get(ctx, id)
	if err != nil {
		return q, err
	}
	q.Status = status
	return t.save(q), nil
}

func (t *memoryTx) UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage, sha string) (persistence.Quote, error) {
	q, err := t.Get(ctx, id)
	if err != nil {
		return q, err
	}
	q.Payload, q.PayloadSHA256 = payload, sha
	return t.save(q), nil
}

func (t *memoryTx) save(q persistence.Quote) persistence.Quote {
	t.repo.clock = t.repo.clock.Add(time.Second)
	q.UpdatedAt = t.repo.clock
	t.repo.quotes[q.ID] = q
	return q
}

func (t *memoryTx) CountContracts(ctx context.Context, id uuid.UUID) (int, error) {
	if _, err := t.Get(ctx, id); err != nil {
		return 0, err
	}
	return t.repo.contracts[id], nil
}

func (t *memoryTx) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}
	delete(t.repo.quotes, id)
	return nil
}

func (t *memoryTx) ProjectExists(_ context.Context, id uuid.UUID) (bool, error) {
	if t.repo.FailWith != nil {
		return false, t.repo.FailWith
	}
	org, ok := t.repo.projects[id]
	return ok && org == t.org, nil
}

func (t *memoryTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
