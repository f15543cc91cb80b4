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

type memoryCustomer struct {
	persistence.Customer
	deleted  bool
	projects int
}

// MemoryRepository is an in-memory Repository for tests. Units of work are
// serialized; a failed unit restores the rows it started from.
type MemoryRepository struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]memoryCustomer
	clock  time.Time
	Ledger *audittest.Ledger
	// FailWith, when set, is returned by every data call.
	FailWith error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rows:   make(map[uuid.UUID]memoryCustomer),
		clock:  time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		Ledger: audittest.NewLedger(),
	}
}

// SetProjectCount fixes the number of projects referencing a customer.
func (r *MemoryRepository) SetProjectCount(id uuid.UUID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := r.rows[id]
	row.projects = n
	r.rows[id] = row
}

// Deleted reports whether a customer exists and is soft-deleted.
func (r *MemoryRepository) Deleted(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	return ok && row.deleted
}

func (r *MemoryRepository) InTenant(_ context.Context, tc tenant.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[uuid.UUID]memoryCustomer, len(r.rows))
	for k, v := range r.rows {
		snapshot[k] = v
	}
	return r.Ledger.Run(tc, func(scope *audit.Scope) error {
		return fn(&memoryTx{repo: r, org: tc.OrganizationID, scope: scope})
	}, func() { r.rows = snapshot })
}

type memoryTx struct {
	repo  *MemoryRepository
	org   uuid.UUID
	scope *audit.Scope
}

func (t *memoryTx) live(id uuid.UUID) (memoryCustomer, error) {
	if t.repo.FailWith != nil {
		return memoryCustomer{}, t.repo.FailWith
	}
	row, ok := t.repo.rows[id]
	if !ok || row.deleted || row.OrganizationID != t.org {
		return memoryCustomer{}, apperr.ErrNotFound
	}
	return row, nil
}

func (t *memoryTx) emailTaken(email string, except uuid.UUID) bool {
	if email == "" {
		return false
	}
	for id, row := range t.repo.rows {
		if id != except && !row.deleted && row.OrganizationID == t.org && strings.EqualFold(row.Email, email) {
			return true
		}
	}
	return false
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (persistence.Customer, error) {
	row, err := t.live(id)
	return row.Customer, err
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Customer, error) {
	return t.Get(ctx, id)
}

func (t *memoryTx) List(_ context.Context, f persistence.CustomerFilter, page paging.Page) ([]persistence.Customer, int, error) {
	if t.repo.FailWith != nil {
		return nil, 0, t.repo.FailWith
	}
	var matches []persistence.Customer
	for _, row := range t.repo.rows {
		if row.deleted || row.OrganizationID != t.org {
			continue
		}
		if f.Query != nil && !containsFold(*f.Query, row.Name, row.Email) {
			continue
		}
		matches = append(matches, row.Customer)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID.String() > matches[j].ID.String()
	})
	return paging.Window(matches, page), len(matches), nil
}

func (t *memoryTx) Insert(_ context.Context, c persistence.NewCustomer) (persistence.Customer, error) {
	if t.repo.FailWith != nil {
		return persistence.Customer{}, t.repo.FailWith
	}
	if t.emailTaken(c.Email, uuid.Nil) {
		return persistence.Customer{}, apperr.Conflict("customer email already exists")
	}
	t.repo.clock = t.repo.clock.Add(time.Second)
	row := persistence.Customer{
		ID:             c.ID,
		OrganizationID: t.org,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
		Notes:          c.Notes,
		CreatedAt:      t.repo.clock,
		UpdatedAt:      t.repo.clock,
	}
	t.repo.rows[c.ID] = memoryCustomer{Customer: row}
	return row, nil
}

func (t *memoryTx) Update(_ context.Context, id uuid.UUID, p persistence.CustomerPatch) (persistence.Customer, error) {
	row, err := t.live(id)
	if err != nil {
		return persistence.Customer{}, err
	}
	if p.Email != nil && t.emailTaken(*p.Email, id) {
		return persistence.Customer{}, apperr.Conflict("customer email already exists")
	}
	assign(&row.Name, p.Name)
	assign(&row.Email, p.Email)
	assign(&row.Phone, p.Phone)
	assign(&row.Address, p.Address)
	assign(&row.Notes, p.Notes)
	t.repo.clock = t.repo.clock.Add(time.Second)
	row.UpdatedAt = t.repo.clock
	t.repo.rows[id] = row
	return row.Customer, nil
}

func (t *memoryTx) SoftDelete(_ context.Context, id uuid.UUID) (time.Time, error) {
	row, err := t.live(id)
	if err != nil {
		return time.Time{}, err
	}
	row.deleted = true
	t.repo.rows[id] = row
	return t.repo.clock, nil
}

func (t *memoryTx) CountProjects(_ context.Context, id uuid.UUID) (int, error) {
	if t.repo.FailWith != nil {
		return 0, t.repo.FailWith
	}
	return t.repo.rows[id].projects, nil
}

func (t *memoryTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}

func assign(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func containsFold(needle string, haystack ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
