package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Context is the request-scoped tenant binding: which organization the caller
// acts for, who the caller is, and with which role. It is built once per
// request from a verified identity and passed explicitly to every service and
// repository call that touches tenant data. It is never stored globally.
type Context struct {
	OrganizationID uuid.UUID
	ActorID        string
	Role           Role
}

// ErrMissing is returned when a tenant context is required but absent or incomplete.
var ErrMissing = errors.New("tenant context missing")

// Validate reports whether the context is complete enough to scope data access.
func (c Context) Validate() error {
	if c.OrganizationID == uuid.Nil || strings.TrimSpace(c.ActorID) == "" {
		return ErrMissing
	}
	if !c.Role.Valid() {
		return ErrMissing
	}
	return nil
}

// System returns a context used by background jobs acting on behalf of an
// organization (audit replay, exports). The role is never grantable through
// a credential.
func System(orgID uuid.UUID, actorID string) Context {
	if strings.TrimSpace(actorID) == "" {
		actorID = "system"
	}
	return Context{OrganizationID: orgID, ActorID: actorID, Role: RoleSystem}
}

type ctxKey string

const contextKey ctxKey = "PALMYRA_TENANT_CONTEXT"

// WithContext returns a derived context carrying the tenant Context.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey, tc)
}

// FromContext extracts the tenant Context and a boolean indicating presence.
func FromContext(ctx context.Context) (Context, bool) {
	v := ctx.Value(contextKey)
	if v == nil {
		return Context{}, false
	}

	tc, ok := v.(Context)
	return tc, ok
}
