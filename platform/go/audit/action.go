// Package audit records exactly one ledger entry per successful or not-found
// operation on tenant data, inside the operation's own transaction.
//
// Services never build records by hand. They open a unit of work with
// Recorder.Run and call Scope.Record with an Event produced by one of the
// constructors in this package, which pair each action with the only
// metadata shape valid for it:
//
//	err := recorder.Run(ctx, db, tc, func(tx pgx.Tx, scope *audit.Scope) error {
//		customer, err := store.Get(ctx, tx, tc.OrganizationID, id)
//		if errors.Is(err, apperr.ErrNotFound) {
//			return scope.Record(audit.Missing(audit.KindCustomer, audit.OpGet, id))
//		}
//		if err != nil {
//			return err
//		}
//		return scope.Record(audit.Found(audit.KindCustomer, customer.ID))
//	})
//
// Invalid input, authentication and permission failures are rejected before
// a unit of work is opened and therefore never reach the ledger.
package audit

import "strings"

// Kind names the resource family an action belongs to.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindProject  Kind = "project"
	KindQuote    Kind = "quote"
	KindContract Kind = "contract"
	KindHandover Kind = "handover"
	KindAuditLog Kind = "audit_log"
)

var kinds = map[Kind]struct{}{
	KindCustomer: {}, KindProject: {}, KindQuote: {}, KindContract: {}, KindHandover: {}, KindAuditLog: {},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// IDKey is the metadata key carrying the primary resource id, e.g. "quote_id".
func (k Kind) IDKey() string { return string(k) + "_id" }

// Title is the capitalised kind used in caller-facing messages, e.g. "Project".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Op names the operation within a kind.
type Op string

const (
	OpGet           Op = "get"
	OpList          Op = "list"
	OpCreate        Op = "create"
	OpUpdate        Op = "update"
	OpDelete        Op = "delete"
	OpStatusUpdate  Op = "status.update"
	OpPayloadUpdate Op = "payload.update"
	OpExport        Op = "export"
)

var ops = map[Op]struct{}{
	OpGet: {}, OpList: {}, OpCreate: {}, OpUpdate: {}, OpDelete: {}, OpStatusUpdate: {}, OpPayloadUpdate: {}, OpExport: {},
}

// Collective reports whether op addresses a set of rows rather than one
// resource. Collective events carry no primary id.
func (o Op) Collective() bool { return o == OpList || o == OpExport }

// Action is the dot-namespaced name of a ledger entry.
type Action struct {
	Kind     Kind
	Op       Op
	NotFound bool
}

const notFoundSuffix = ".not_found"

// String renders <kind>.<op>[.not_found], e.g. "quote.status.update.not_found".
func (a Action) String() string {
	s := string(a.Kind) + "." + string(a.Op)
	if a.NotFound {
		s += notFoundSuffix
	}
	return s
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, bool) {
	var a Action
	if rest, ok := strings.CutSuffix(s, notFoundSuffix); ok {
		a.NotFound = true
		s = rest
	}

	kind, op, ok := strings.Cut(s, ".")
	if !ok {
		return Action{}, false
	}
	a.Kind, a.Op = Kind(kind), Op(op)
	if !a.Kind.Valid() {
		return Action{}, false
	}
	if _, known := ops[a.Op]; !known {
		return Action{}, false
	}
	return a, true
}
