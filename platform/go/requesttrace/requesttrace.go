package requesttrace

import (
	"context"

	"github.com/google/uuid"

	platformauth "github.com/zenGate-Global/palmyra-fieldops/platform/go/auth"
)

type contextKey string

const (
	ctxTrace contextKey = "PALMYRA_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// Trace captures request-scoped metadata stamped onto logs and audit records.
// ActorID and OrganizationID are set only when ActorKind is user.
type Trace struct {
	ActorKind      ActorKind
	ActorID        string
	OrganizationID uuid.UUID
	Role           string
	RequestID      string
}

// IntoContext stores the Trace in the provided context.
func IntoContext(ctx context.Context, trace Trace) context.Context {
	return context.WithValue(ctx, ctxTrace, trace)
}

// FromContext extracts the Trace from context, returning false when not present.
func FromContext(ctx context.Context) (Trace, bool) {
	if ctx == nil {
		return Trace{}, false
	}
	v := ctx.Value(ctxTrace)
	if v == nil {
		return Trace{}, false
	}

	trace, ok := v.(Trace)
	return trace, ok
}

// FromIdentity builds a Trace from a verified identity and a request ID.
func FromIdentity(id platformauth.Identity, requestID string) Trace {
	return Trace{
		ActorKind:      ActorKindUser,
		ActorID:        id.ActorID,
		OrganizationID: id.OrganizationID,
		Role:           string(id.Role),
		RequestID:      requestID,
	}
}

// Anonymous builds a Trace for requests without a verified identity.
func Anonymous(requestID string) Trace {
	return Trace{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds a Trace for background operations such as audit replay.
func System(requestID string) Trace {
	return Trace{ActorKind: ActorKindSystem, RequestID: requestID}
}
