package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainrepo "github.com/zenGate-Global/palmyra-fieldops/domains/projects/be/repo"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/lifecycle"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/validate"
)

// Project is the project resource returned to callers.
type Project = persistence.Project

const (
	maxName        = 200
	maxDescription = 2000
	maxSiteAddress = 500
)

// Statuses is the project status machine.
var Statuses = lifecycle.New("draft", map[string][]string{
	"draft":     {"active", "cancelled"},
	"active":    {"on_hold", "completed", "cancelled"},
	"on_hold":   {"active", "cancelled"},
	"completed": nil,
	"cancelled": nil,
})

// CreateInput defines the payload required to create a project.
type CreateInput struct {
	CustomerID  *uuid.UUID
	Name        string
	Description string
	SiteAddress string
}

// UpdateInput holds the fields to change. nil fields are not submitted.
type UpdateInput struct {
	Name        *string
	Description *string
	SiteAddress *string
}

// ListInput narrows a project listing. Status is validated against Statuses.
type ListInput struct {
	Page       paging.Page
	Query      *string
	Status     *string
	CustomerID *uuid.UUID
}

type ListResult struct {
	Items []Project
	Total int
}

// Service exposes the projects domain operations.
type Service interface {
	Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Project, error)
	List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error)
	Create(ctx context.Context, tc tenant.Context, input CreateInput) (Project, error)
	Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Project, error)
	UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Project, error)
	Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error
}

type service struct {
	repo  domainrepo.Repository
	newID func() uuid.UUID
}

// New builds a projects Service backed by the provided repository.
func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("project repository is required")
	}
	return &service{repo: repo, newID: uuid.New}
}

func (s *service) Get(ctx context.Context, tc tenant.Context, id uuid.UUID) (Project, error) {
	var out Project
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		project, err := tx.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindProject, audit.OpGet, id))
		}
		if err != nil {
			return err
		}
		out = project
		return tx.Record(audit.Found(audit.KindProject, project.ID))
	})
	return out, err
}

func (s *service) List(ctx context.Context, tc tenant.Context, input ListInput) (ListResult, error) {
	if err := input.Page.Validate(); err != nil {
		return ListResult{}, err
	}
	filters := map[string]string{}
	if input.Status != nil {
		if _, err := Statuses.ParseStatus("status", *input.Status); err != nil {
			return ListResult{}, err
		}
		filters["status"] = *input.Status
	}
	if input.Query != nil {
		filters["q"] = *input.Query
	}
	if input.CustomerID != nil {
		filters["customer_id"] = input.CustomerID.String()
	}

	filter := persistence.ProjectFilter{Query: input.Query, Status: input.Status, CustomerID: input.CustomerID}
	var out ListResult
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		items, total, err := tx.List(ctx, filter, input.Page)
		if err != nil {
			return err
		}
		out = ListResult{Items: items, Total: total}
		return tx.Record(audit.Listed(audit.KindProject, input.Page, projectIDs(items), total, filters))
	})
	return out, err
}

func (s *service) Create(ctx context.Context, tc tenant.Context, input CreateInput) (Project, error) {
	fe := apperr.FieldErrors{}
	if input.CustomerID == nil {
		fe.Add("customer_id", "customer_id is required")
	}
	record := persistence.NewProject{
		ID:          s.newID(),
		Name:        validate.Text(fe, "name", input.Name, true, maxName),
		Description: validate.Text(fe, "description", input.Description, false, maxDescription),
		SiteAddress: validate.Text(fe, "site_address", input.SiteAddress, false, maxSiteAddress),
	}
	if err := fe.Err(); err != nil {
		return Project{}, err
	}
	record.CustomerID = *input.CustomerID

	var out Project
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		ok, err := tx.CustomerExists(ctx, record.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return tx.Record(audit.ParentMissing(audit.KindProject, record.ID, audit.KindCustomer, record.CustomerID))
		}

		project, err := tx.Insert(ctx, record)
		if err != nil {
			return err
		}
		out = project
		return tx.Record(audit.Created(audit.KindProject, project.ID, audit.Creation{
			Related: map[string]uuid.UUID{"customer_id": project.CustomerID},
			Status:  project.Status,
		}))
	})
	return out, err
}

func (s *service) Update(ctx context.Context, tc tenant.Context, id uuid.UUID, input UpdateInput) (Project, error) {
	fe := apperr.FieldErrors{}
	validate.AtLeastOne(fe, input.Name != nil, input.Description != nil, input.SiteAddress != nil)
	patch := persistence.ProjectPatch{
		Name:        validate.OptionalText(fe, "name", input.Name, true, maxName),
		Description: validate.OptionalText(fe, "description", input.Description, false, maxDescription),
		SiteAddress: validate.OptionalText(fe, "site_address", input.SiteAddress, false, maxSiteAddress),
	}
	if err := fe.Err(); err != nil {
		return Project{}, err
	}

	var out Project
	err := s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindProject, audit.OpUpdate, id))
		}
		if err != nil {
			return err
		}

		var changes audit.ChangeSet
		changes.String("name", patch.Name, current.Name)
		changes.String("description", patch.Description, current.Description)
		changes.String("site_address", patch.SiteAddress, current.SiteAddress)

		out = current
		if !changes.Empty() {
			if out, err = tx.Update(ctx, id, patch); err != nil {
				return err
			}
		}
		return tx.Record(audit.Updated(audit.KindProject, id, changes.Fields()))
	})
	return out, err
}

func (s *service) UpdateStatus(ctx context.Context, tc tenant.Context, id uuid.UUID, status string) (Project, error) {
	to, err := Statuses.ParseStatus("status", status)
	if err != nil {
		return Project{}, err
	}

	var out Project
	err = s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindProject, audit.OpStatusUpdate, id))
		}
		if err != nil {
			return err
		}
		if err := Statuses.Transition(current.Status, to); err != nil {
			return err
		}

		out = current
		if current.Status != to {
			if out, err = tx.UpdateStatus(ctx, id, to); err != nil {
				return err
			}
		}
		return tx.Record(audit.StatusChanged(audit.KindProject, id, current.Status, to))
	})
	return out, err
}

// Delete removes a project together with its quotes, contracts and handovers.
func (s *service) Delete(ctx context.Context, tc tenant.Context, id uuid.UUID) error {
	return s.repo.InTenant(ctx, tc, func(tx domainrepo.Tx) error {
		current, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return tx.Record(audit.Missing(audit.KindProject, audit.OpDelete, id))
		}
		if err != nil {
			return err
		}

		deps, err := tx.Dependents(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return tx.Record(audit.Deleted(audit.KindProject, id, audit.Deletion{
			Mode:    audit.DeleteHard,
			Related: map[string]uuid.UUID{"customer_id": current.CustomerID},
			Status:  current.Status,
			Dependents: map[string]int{
				"quotes":    deps.Quotes,
				"contracts": deps.Contracts,
				"handovers": deps.Handovers,
			},
		}))
	})
}

func projectIDs(items []Project) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	return ids
}
