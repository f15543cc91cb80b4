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

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu        sync.Mutex
	handovers map[uuid.UUID]persistence.Handover
	projects  map[uuid.UUID]uuid.UUID
	clock     time.Time
	Ledger    *audittest.Ledger
	FailWith  error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		handovers: make(map[uuid.UUID]persistence.Handover),
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

func (r *MemoryRepository) InTenant(_ context.Context, tc tenant.Context, fn func(Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[uuid.UUID]persistence.Handover, len(r.handovers))
	for k, v := range r.handovers {
		snapshot[k] = v
	}
	return r.Ledger.Run(tc, func(scope *audit.Scope) error {
		return fn(&memoryTx{repo: r, org: tc.OrganizationID, scope: scope})
	}, func() { r.handovers = snapshot })
}

type memoryTx struct {
	repo  *MemoryRepository
	org   uuid.UUID
	scope *audit.Scope
}

func (t *memoryTx) Get(_ context.Context, id uuid.UUID) (persistence.Handover, error) {
	if t.repo.FailWith != nil {
		return persistence.Handover{}, t.repo.FailWith
	}
	h, ok := t.repo.handovers[id]
	if !ok || h.OrganizationID != t.org {
		return persistence.Handover{}, apperr.ErrNotFound
	}
	return h, nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id uuid.UUID) (persistence.Handover, error) {
	return t.Get(ctx, id)
}

func (t *memoryTx) List(_ context.Context, f persistence.HandoverFilter, page paging.Page) ([]persistence.Handover, int, error) {
	if t.repo.FailWith != nil {
		return nil, 0, t.repo.FailWith
	}
	var matches []persistence.Handover
	for _, h := range t.repo.handovers {
		switch {
		case h.OrganizationID != t.org:
		case f.Status != nil && h.Status != *f.Status:
		case f.ProjectID != nil && h.ProjectID != *f.ProjectID:
		case f.Query != nil && !strings.Contains(strings.ToLower(h.RecipientName), strings.ToLower(*f.Query)):
		default:
			matches = append(matches, h)
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

func (t *memoryTx) Insert(_ context.Context, n persistence.NewHandover) (persistence.Handover, error) {
	if t.repo.FailWith != nil {
		return persistence.Handover{}, t.repo.FailWith
	}
	t.repo.clock = t.repo.clock.Add(time.Second)
	payload := n.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	h := persistence.Handover{
		ID:             n.ID,
		OrganizationID: t.org,
		ProjectID:      n.ProjectID,
		RecipientName:  n.RecipientName,
		Notes:          n.Notes,
		ScheduledFor:   n.ScheduledFor,
		Payload:        payload,
		PayloadSHA256:  n.PayloadSHA256,
		Status:         "scheduled",
		CreatedAt:      t.repo.clock,
		UpdatedAt:      t.repo.clock,
	}
	t.repo.handovers[h.ID] = h
	return h, nil
}

func (t *memoryTx) Update(ctx context.Context, id uuid.UUID, p persistence.HandoverPatch) (persistence.Handover, error) {
	h, err := t.Get(ctx, id)
	if err != nil {
		return h, err
	}
	if p.RecipientName != nil {
		h.RecipientName = *p.RecipientName
	}
	if p.Notes != nil {
		h.Notes = *p.Notes
	}
	if p.ScheduledFor != nil {
		h.ScheduledFor = p.ScheduledFor.Time
	}
	return t.save(h), nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Handover, error) {
	h, err := t.Get(ctx, id)
	if err != nil {
		return h, err
	}
	h.Status = status
	h = t.save(h)
	if status == "completed" && h.CompletedAt == nil {
		done := h.UpdatedAt
		h.CompletedAt = &done
		t.repo.handovers[id] = h
	}
	return h, nil
}

func (t *memoryTx) UpdatePayload(ctx context.Context, id uuid.UUID, payload json.RawMessage, sha string) (persistence.Handover, error) {
	h, err := t.Get(ctx, id)
	if err != nil {
		return h, err
	}
	h.Payload, h.PayloadSHA256 = payload, sha
	return t.save(h), nil
}

func (t *memoryTx) save(h persistence.Handover) persistence.Handover {
	t.repo.clock = t.repo.clock.Add(time.Second)
	h.UpdatedAt = t.repo.clock
	t.repo.handovers[h.ID] = h
	return h
}

func (t *memoryTx) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := t.Get(ctx, id); err != nil {
		return err
	}
	delete(t.repo.handovers, id)
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
