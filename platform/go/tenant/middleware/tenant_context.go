package middleware

import (
	"net/http"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	platformlogging "github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Bind derives the tenant context from a verified identity. Role and
// organization come from the credential and are not re-derived.
func Bind(id platformauth.Identity) tenant.Context {
	return tenant.Context{
		OrganizationID: id.OrganizationID,
		ActorID:        id.ActorID,
		Role:           id.Role,
	}
}

// WithTenantContext attaches a tenant.Context built from the authenticated
// identity. When checker is non-nil, identities of unknown or suspended
// organizations are rejected as unauthenticated.
func WithTenantContext(checker OrganizationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := platformauth.IdentityFromContext(r.Context())
			if !ok {
				httpapi.WriteError(w, http.StatusUnauthorized, httpapi.MsgUnauthorized)
				return
			}

			if checker != nil {
				active, err := checker.IsActive(r.Context(), id.OrganizationID)
				if err != nil {
					platformlogging.FromRequest(r, nil).Error("organization lookup failed",
						zap.String("organization_id", id.OrganizationID.String()), zap.Error(err))
					httpapi.WriteError(w, http.StatusInternalServerError, httpapi.MsgInternal)
					return
				}
				if !active {
					platformlogging.FromRequest(r, nil).Info("organization inactive or unknown",
						zap.String("organization_id", id.OrganizationID.String()))
					httpapi.WriteError(w, http.StatusUnauthorized, httpapi.MsgUnauthorized)
					return
				}
			}

			ctx := tenant.WithContext(r.Context(), Bind(id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on the bound role.
func RequirePermission(p tenant.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenant.FromContext(r.Context())
			if !ok {
				httpapi.WriteError(w, http.StatusUnauthorized, httpapi.MsgUnauthorized)
				return
			}
			if !tc.Role.Can(p) {
				// The request logger already carries the caller's role.
				platformlogging.FromRequest(r, nil).Warn("permission denied", zap.String("permission", string(p)))
				httpapi.WriteError(w, http.StatusForbidden, httpapi.MsgForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
