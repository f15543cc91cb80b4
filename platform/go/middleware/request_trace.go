package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/requesttrace"
)

// RequestTrace populates the context with the request Trace so the audit
// recorder can stamp request ids, and enriches the request logger with the
// caller. It runs after authentication so the identity is available.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		trace := requesttrace.Anonymous(requestID)
		if id, ok := platformauth.IdentityFromContext(r.Context()); ok {
			trace = requesttrace.FromIdentity(id, requestID)
		}

		ctx := requesttrace.IntoContext(r.Context(), trace)
		if logger, ok := platformlogging.FromContext(ctx); ok && logger != nil {
			fields := []zap.Field{zap.String("actor_kind", string(trace.ActorKind))}
			if trace.ActorKind == requesttrace.ActorKindUser {
				fields = append(fields,
					zap.String("actor_id", trace.ActorID),
					zap.String("organization_id", trace.OrganizationID.String()),
					zap.String("role", trace.Role),
				)
			}
			ctx = platformlogging.WithLogger(ctx, logger.With(fields...))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
