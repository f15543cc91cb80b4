package repo

import (
	"context"
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

type memoryContract struct {
	persistence.Contract
	deleted bool
}

// MemoryRepository is an in-memory Repository for tests. Units of work are
// serialized; a failed unit restores the rows it started from.
type MemoryRepository struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]memoryContract
	quotes    map[uuid.UUID]persistence.Quote
	clock     time.Time
	Ledger    *audittest.Ledger
	FailWith  error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		contracts: make(map[uuid.UUID]memoryContract),
		quotes:    make(map[uuid.UUID]persistence.Quote),
		clock:     time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		Ledger:    audittest.NewLedger(),
	}
}

// AddQuote registers a quote of org with the given status and returns its id.
func (r *MemoryRepository) AddQuote(org, project uuid.UUID, status string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.quotes[id] = persistence.Quote{ID: id, OrganizationID: org, ProjectID: project, Status: status}
	return id
}

// Deleted reports whether a contract exists and is soft-deleted.
func (r *MemoryRepository) Deleted(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	return ok && c.deleted
}

func (r *MemoryRepository) InTenant(_ context.Context, tc tenant.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[uuid.UUID]memoryContract, len(r.contracts))
	for k, v := range r.contracts {
		snapshot[k] = v
	}
	return r.Ledger.Run(tc, func(scope *audit.Scope) error {
		return fn(&memoryTx{repo: r, org: tc.OrganizationID, scope: scope})
	}, func() { r.contracts = snapshot })
}

type memoryTx struct {
	repo  *MemoryRepository
	org   uuid.UUID
	scope *audit.Scope
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (persistence.Contract, error) {
	if t.repo.FailWith != nil {
		return persistence.Contract{}, t.repo.FailWith
	}
	c, ok := t.repo.contracts[id]
	if !ok || c.deleted || c.OrganizationID != t.org {
		return persistence.Contract{}, apperr.ErrNotFound
	}
	return c.Contract, nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Contract, error) {
	return t.Get(ctx, id)
}

func (t *memoryTx) List(_ context.Context, f persistence.ContractFilter, page paging.Page) ([]persistence.Contract, int, error) {
	if t.repo.FailWith != nil {
		return nil, 0, t.repo.FailWith
	}
	var matches []persistence.Contract
	for _, c := range t.repo.contracts {
		switch {
		case c.deleted || c.OrganizationID != t.org:
		case f.Status != nil && c.Status != *f.Status:
		case f.ProjectID != nil && c.ProjectID != *f.ProjectID:
		case f.QuoteID != nil && c.QuoteID != *f.QuoteID:
		case f.Query != nil && !strings.Contains(strings.ToLower(c.Number+" "+c.Title), strings.ToLower(*f.Query)):
		default:
			matches = append(matches, c.Contract)
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

// numberTaken mirrors the partial unique index over live contracts.
func (t *memoryTx) numberTaken(number string, except uuid.UUID) bool {
	for _, c := range t.repo.contracts {
		if !c.deleted && c.OrganizationID == t.org && c.ID != except && c.Number == number {
			return true
		}
	}
	return false
}

func (t *memoryTx) Insert(_ context.Context, n persistence.NewContract) (persistence.Contract, error) {
	if t.repo.FailWith != nil {
		return persistence.Contract{}, t.repo.FailWith
	}
	if t.numberTaken(n.Number, uuid.Nil) {
		return persistence.Contract{}, apperr.Conflict("contract number already exists")
	}
	t.repo.clock = t.repo.clock.Add(time.Second)
	c := persistence.Contract{
		ID:             n.ID,
		OrganizationID: t.org,
		QuoteID:        n.QuoteID,
		ProjectID:      n.ProjectID,
		Number:         n.Number,
		Title:          n.Title,
		Terms:          n.Terms,
		Status:         "draft",
		CreatedAt:      t.repo.clock,
		UpdatedAt:      t.repo.clock,
	}
	t.repo.contracts[c.ID] = memoryContract{Contract: c}
	return c, nil
}

func (t *memoryTx) Update(ctx context.Context, id uuid.UUID, p persistence.ContractPatch) (persistence.Contract, error) {
	c, err := t.Get(ctx, id)
	if err != nil {
		return c, err
	}
	if p.Number != nil {
		if t.numberTaken(*p.Number, id) {
			return persistence.Contract{}, apperr.Conflict("contract number already exists")
		}
		c.Number = *p.Number
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Terms != nil {
		c.Terms = *p.Terms
	}
	return t.save(c), nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Contract, error) {
	c, err := t.Get(ctx, id)
	if err != nil {
		return c, err
	}
	c.Status = status
	if status != "signed" {
		c.SignedAt = nil
	}
	c = t.save(c)
	if status == "signed" && c.SignedAt == nil {
		signed := c.UpdatedAt
		c.SignedAt = &signed
		t.repo.contracts[id] = memoryContract{Contract: c}
	}
	return c, nil
}

func (t *memoryTx) save(c persistence.Contract) persistence.Contract {
	t.repo.clock = t.repo.clock.Add(time.Second)
	c.UpdatedAt = t.repo.clock
	t.repo.contracts[c.ID] = memoryContract{Contract: c}
	return c
}

func (t *memoryTx) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	t.repo.contracts[id] = memoryContract{Contract: c, deleted: true}
	return nil
}

func (t *memoryTx) LockQuote(_ context.Context, id uuid.UUID) (persistence.Quote, error) {
	if t.repo.FailWith != nil {
		return persistence.Quote{}, t.repo.FailWith
	}
	q, ok := t.repo.quotes[id]
	if !ok || q.OrganizationID != t.org {
		return persistence.Quote{}, apperr.ErrNotFound
	}
	return q, nil
}

func (t *memoryTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
