package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Identity is the verified caller extracted from a bearer credential.
type Identity struct {
	ActorID        string
	Role           tenant.Role
	OrganizationID uuid.UUID
}

// ErrorKind classifies a verification failure.
type ErrorKind string

const (
	KindAbsent    ErrorKind = "absent"
	KindMalformed ErrorKind = "malformed"
	KindExpired   ErrorKind = "expired"
)

// Sentinels usable with errors.Is against any *Error.
var (
	ErrAbsent    = &Error{Kind: KindAbsent}
	ErrMalformed = &Error{Kind: KindMalformed}
	ErrExpired   = &Error{Kind: KindExpired}
)

// Error is returned by every Verifier.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "credential " + string(e.Kind)
	}
	return fmt.Sprintf("credential %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so wrapped causes do not defeat errors.Is(err, ErrExpired).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func malformed(format string, args ...any) error {
	return &Error{Kind: KindMalformed, Err: fmt.Errorf(format, args...)}
}

// Verifier validates a raw bearer credential against a trust anchor.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

type ctxKey string

const ctxIdentity ctxKey = "PALMYRA_IDENTITY"

// WithIdentity returns a derived context carrying the verified identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// IdentityFromContext returns the identity set by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v := ctx.Value(ctxIdentity)
	if v == nil {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// Authenticate rejects every request without a valid credential. On success
// the Identity is attached to the request context; on failure the request
// never reaches tenant binding or any handler.
func Authenticate(verifier Verifier) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("auth.Authenticate: verifier must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			raw, _ := ExtractBearerToken(r)
			id, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				kind := KindMalformed
				var authErr *Error
				if errors.As(err, &authErr) {
					kind = authErr.Kind
				}
				logging.FromRequest(r, zap.NewNop()).Info("credential rejected", zap.String("kind", string(kind)))
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="api", error="invalid_token", error_description="%s"`, kind))
				httpapi.WriteError(w, http.StatusUnauthorized, httpapi.MsgUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFromClaims converts a decoded claim set into an Identity. The actor
// is the first non-empty of uid, user_id and sub.
func identityFromClaims(claims map[string]interface{}) (Identity, error) {
	if claims == nil {
		return Identity{}, malformed("missing claims")
	}

	actor := fallbackStringClaim(claims, []string{"uid", "user_id", "sub"})
	if actor == "" {
		return Identity{}, malformed("missing subject")
	}

	return buildIdentity(actor, extractStringClaim(claims, "org_id"), extractStringClaim(claims, "role"))
}

func buildIdentity(actor, orgRaw, roleRaw string) (Identity, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return Identity{}, malformed("missing subject")
	}

	orgID, err := uuid.Parse(strings.TrimSpace(orgRaw))
	if err != nil || orgID == uuid.Nil {
		return Identity{}, malformed("invalid org_id claim")
	}

	role, ok := tenant.ParseRole(roleRaw)
	if !ok {
		return Identity{}, malformed("invalid role claim")
	}

	return Identity{ActorID: actor, Role: role, OrganizationID: orgID}, nil
}

func extractStringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key]; ok {
		if strVal, valid := v.(string); valid {
			return strVal
		}
	}
	return ""
}

func fallbackStringClaim(claims map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v := extractStringClaim(claims, key); v != "" {
			return v
		}
	}
	return ""
}
