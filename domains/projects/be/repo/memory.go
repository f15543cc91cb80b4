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

type memoryState struct {
	projects   map[uuid.UUID]persistence.Project
	dependents map[uuid.UUID]persistence.ProjectDependents
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		projects:   make(map[uuid.UUID]persistence.Project, len(s.projects)),
		dependents: make(map[uuid.UUID]persistence.ProjectDependents, len(s.dependents)),
	}
	for k, v := range s.projects {
		out.projects[k] = v
	}
	for k, v := range s.dependents {
		out.dependents[k] = v
	}
	return out
}

// MemoryRepository is an in-memory Repository for tests. Units of work are
// serialized; a failed unit restores the rows it started from.
type MemoryRepository struct {
	mu        sync.Mutex
	state     memoryState
	customers map[uuid.UUID]uuid.UUID
	clock     time.Time
	Ledger    *audittest.Ledger
	FailWith  error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: memoryState{
			projects:   make(map[uuid.UUID]persistence.Project),
			dependents: make(map[uuid.UUID]persistence.ProjectDependents),
		},
		customers: make(map[uuid.UUID]uuid.UUID),
		clock:     time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		Ledger:    audittest.NewLedger(),
	}
}

// AddCustomer registers a live customer of org.
func (r *MemoryRepository) AddCustomer(org, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[id] = org
}

// SetDependents fixes the rows that a delete of the project removes.
func (r *MemoryRepository) SetDependents(id uuid.UUID, d persistence.ProjectDependents) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.dependents[id] = d
}

// Exists reports whether a project row exists in any organization.
func (r *MemoryRepository) Exists(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.state.projects[id]
	return ok
}

func (r *MemoryRepository) InTenant(_ context.Context, tc tenant.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	return r.Ledger.Run(tc, func(scope *audit.Scope) error {
		return fn(&memoryTx{repo: r, org: tc.OrganizationID, scope: scope})
	}, func() { r.state = snapshot })
}

type memoryTx struct {
	repo  *MemoryRepository
	org   uuid.UUID
	scope *audit.Scope
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (persistence.Project, error) {
	if t.repo.FailWith != nil {
		return persistence.Project{}, t.repo.FailWith
	}
	p, ok := t.repo.state.projects[id]
	if !ok || p.OrganizationID != t.org {
		return persistence.Project{}, apperr.ErrNotFound
	}
	return p, nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
	return t.Get(ctx, id)
}

func (t *memoryTx) List(_ context.Context, f persistence.ProjectFilter, page paging.Page) ([]persistence.Project, int, error) {
	if t.repo.FailWith != nil {
		return nil, 0, t.repo.FailWith
	}
	var matches []persistence.Project
	for _, p := range t.repo.state.projects {
		switch {
		case p.OrganizationID != t.org:
		case f.Status != nil && p.Status != *f.Status:
		case f.CustomerID != nil && p.CustomerID != *f.CustomerID:
		case f.Query != nil && !strings.Contains(strings.ToLower(p.Name+" "+p.SiteAddress), strings.ToLower(*f.Query)):
		default:
			matches = append(matches, p)
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

func (t *memoryTx) Insert(_ context.Context, n persistence.NewProject) (persistence.Project, error) {
	if t.repo.FailWith != nil {
		return persistence.Project{}, t.repo.FailWith
	}
	if t.repo.customers[n.CustomerID] != t.org {
		return persistence.Project{}, apperr.Conflict("related row does not exist")
	}
	t.repo.clock = t.repo.clock.Add(time.Second)
	p := persistence.Project{
		ID:             n.ID,
		OrganizationID: t.org,
		CustomerID:     n.CustomerID,
		Name:           n.Name,
		Description:    n.Description,
		SiteAddress:    n.SiteAddress,
		Status:         "draft",
		CreatedAt:      t.repo.clock,
		UpdatedAt:      t.repo.clock,
	}
	t.repo.state.projects[p.ID] = p
	return p, nil
}

func (t *memoryTx) Update(ctx context.Context, id uuid.UUID, patch persistence.ProjectPatch) (persistence.Project, error) {
	p, err := t.Get(ctx, id)
	if err != nil {
		return p, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.SiteAddress != nil {
		p.SiteAddress = *patch.SiteAddress
	}
	return t.save(p), nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Project, error) {
	p, err := t.Get(ctx, id)
	if err != nil {
		return p, err
	}
	p.Status = status
	return t.save(p), nil
}

func (t *memoryTx) save(p persistence.Project) persistence.Project {
	t.repo.clock = t.repo.clock.Add(time.Second)
	p.UpdatedAt = t.repo.clock
	t.repo.state.projects[p.ID] = p
	return p
}

func (t *memoryTx) Dependents(ctx context.Context, id uuid.UUID) (persistence.ProjectDependents, error) {
	if _, err := t.Get(ctx, id); err != nil {
		return persistence.ProjectDependents{}, err
	}
	return t.repo.state.dependents[id], nil
}

func (t *memoryTx) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}
	delete(t.repo.state.projects, id)
	delete(t.repo.state.dependents, id)
	return nil
}

func (t *memoryTx) CustomerExists(_ context.Context, id uuid.UUID) (bool, error) {
	if t.repo.FailWith != nil {
		return false, t.repo.FailWith
	}
	org, ok := t.repo.customers[id]
	return ok && org == t.org, nil
}

func (t *memoryTx) Record(ev audit.Event) error {
	return t.scope.Record(ev)
}
