package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/validate"
)

// Organization is a tenant registry entry.
type Organization = persistence.Organization

const maxName = 200

// ErrNotFound is returned when no organization has the requested id.
var ErrNotFound = fmt.Errorf("organization: %w", apperr.ErrNotFound)

// CreateInput represents the request to register an organization.
type CreateInput struct {
	Slug string
	Name string
}

// Repository abstracts the registry storage. It runs outside any tenant
// binding.
type Repository interface {
	Create(ctx context.Context, org persistence.NewOrganization) (Organization, error)
	Get(ctx context.Context, id uuid.UUID) (Organization, error)
	List(ctx context.Context) ([]Organization, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (Organization, error)
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service provides organization registry operations.
type Service struct {
	repo  Repository
	newID func() uuid.UUID
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("organizations repo is required")
	}
	return &Service{repo: repo, newID: uuid.New}
}

// Create registers a new active organization. The slug is normalized to
// lower case.
func (s *Service) Create(ctx context.Context, input CreateInput) (Organization, error) {
	fe := apperr.FieldErrors{}
	slug, err := persistence.NormalizeSlug(input.Slug)
	if err != nil {
		fe.Add("slug", err.Error())
	}
	name := validate.Text(fe, "name", input.Name, true, maxName)
	if err := fe.Err(); err != nil {
		return Organization{}, err
	}

	return s.repo.Create(ctx, persistence.NewOrganization{ID: s.newID(), Slug: slug, Name: name})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, err := s.repo.Get(ctx, id)
	return org, notFound(err)
}

// List returns every organization ordered by slug.
func (s *Service) List(ctx context.Context) ([]Organization, error) {
	return s.repo.List(ctx)
}

// Suspend stops an organization from acting. Credentials of a suspended
// organization are rejected by the tenant binder once its cache entry
// expires or is invalidated.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, err := s.repo.SetStatus(ctx, id, persistence.OrganizationSuspended)
	return org, notFound(err)
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) (Organization, error) {
	org, err := s.repo.SetStatus(ctx, id, persistence.OrganizationActive)
	return org, notFound(err)
}

// IsActive implements the tenant binder's organization checker.
func (s *Service) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.IsActive(ctx, id)
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return err
}
