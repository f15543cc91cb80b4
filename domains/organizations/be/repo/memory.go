package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-fieldops/domains/organizations/be/service"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
)

// MemoryRepository is an in-memory registry for tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]service.Organization
	bySlug map[string]uuid.UUID
	now    time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]service.Organization),
		bySlug: make(map[string]uuid.UUID),
		now:    time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (r *MemoryRepository) Create(_ context.Context, n persistence.NewOrganization) (service.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySlug[n.Slug]; exists {
		return service.Organization{}, apperr.Conflict("organization slug already exists")
	}

	r.now = r.now.Add(time.Second)
	org := service.Organization{ID: n.ID, Slug: n.Slug, Name: n.Name, Status: persistence.OrganizationActive, CreatedAt: r.now}
	r.byID[org.ID] = org
	r.bySlug[org.Slug] = org.ID
	return org, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (service.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	org, ok := r.byID[id]
	if !ok {
		return service.Organization{}, apperr.ErrNotFound
	}
	return org, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]service.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Organization, 0, len(r.byID))
	for _, org := range r.byID {
		items = append(items, org)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Slug < items[j].Slug })
	return items, nil
}

func (r *MemoryRepository) SetStatus(_ context.Context, id uuid.UUID, status string) (service.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	org, ok := r.byID[id]
	if !ok {
		return service.Organization{}, apperr.ErrNotFound
	}
	org.Status = status
	r.byID[id] = org
	return org, nil
}

func (r *MemoryRepository) IsActive(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	org, ok := r.byID[id]
	return ok && org.Status == persistence.OrganizationActive, nil
}
