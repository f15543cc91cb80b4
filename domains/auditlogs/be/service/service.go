package service

import (
	"context"

	"github.com/google/uuid"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/auditlogs/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Record is one audit ledger entry as returned to reviewers.
type Record = persistence.AuditRecord

// ListInput narrows an audit review listing.
type ListInput struct {
	Page       paging.Page
	Action     *string
	ResourceID *uuid.UUID
}

type ListResult struct {
	Items []Record
	Total int
}

// Service exposes audit review. Reading the ledger is itself recorded.
type Service interface {
	List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error)
}

type service struct {
	repo domainrepo.Repository
}

func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("audit log repository is required")
	}
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error) {
	if err := input.Page.Validate(); err != nil {
		return ListResult{}, err
	}

	filter := persistence.AuditFilter{ResourceID: input.ResourceID}
	filters := map[string]string{}
	if input.Action != nil {
		if _, ok := audit.ParseAction(*input.Action); !ok {
			return ListResult{}, apperr.Invalid("action", "unknown action")
		}
		filter.Action = input.Action
		filters["action"] = *input.Action
	}
	if input.ResourceID != nil {
		filters["resource_id"] = input.ResourceID.String()
	}

	var out ListResult
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		items, total, err := tx.List(ctx, filter, input.Page)
		if err != nil {
			return err
		}
		out = ListResult{Items: items, Total: total}

		ids := make([]uuid.UUID, len(items))
		for i, rec := range items {
			ids[i] = rec.ID
		}
		return tx.Record(audit.Listed(audit.KindAuditLog, input.Page, ids, total, filters))
	})
	return out, err
}
