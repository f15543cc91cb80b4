package audit

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/paging"
)

// Event is one auditable outcome. Build it with the constructors below.
type Event struct {
	Action Action
	// ResourceID is the primary id the operation addressed. It is the
	// requested id for not-found outcomes, which may be the nil UUID. List
	// and export events carry no primary id.
	ResourceID uuid.UUID
	Metadata   Metadata
}

// Found records a successful read of one resource.
func Found(kind Kind, id uuid.UUID) Event {
	return Event{Action: Action{Kind: kind, Op: OpGet}, ResourceID: id, Metadata: Lookup{}}
}

// Missing records op on an id that does not exist inside the caller's organization.
func Missing(kind Kind, op Op, id uuid.UUID) Event {
	return Event{Action: Action{Kind: kind, Op: op, NotFound: true}, ResourceID: id, Metadata: Lookup{}}
}

// ParentMissing records a create whose parent does not exist inside the
// caller's organization. id is the id the new resource would have had.
func ParentMissing(kind Kind, id uuid.UUID, parent Kind, parentID uuid.UUID) Event {
	return Event{
		Action:     Action{Kind: kind, Op: OpCreate, NotFound: true},
		ResourceID: id,
		Metadata:   MissingParent{Parent: parent, ParentID: parentID},
	}
}

// Listed records a page returned by a list call.
func Listed(kind Kind, page paging.Page, ids []uuid.UUID, total int, filters map[string]string) Event {
	return Event{
		Action: Action{Kind: kind, Op: OpList},
		Metadata: Listing{
			Limit:       page.Limit,
			Offset:      page.Offset,
			ResultCount: len(ids),
			TotalCount:  total,
			IDs:         ids,
			Filters:     filters,
		},
	}
}

// Exported records a ledger export of count records. since and action are
// the filters it ran with.
func Exported(count int, since *time.Time, action string) Event {
	return Event{
		Action:   Action{Kind: KindAuditLog, Op: OpExport},
		Metadata: Exportation{RecordCount: count, Since: since, Action: action},
	}
}

// Created records a new resource.
func Created(kind Kind, id uuid.UUID, c Creation) Event {
	return Event{Action: Action{Kind: kind, Op: OpCreate}, ResourceID: id, Metadata: c}
}

// Updated records a field update. changed may be empty when nothing differed.
func Updated(kind Kind, id uuid.UUID, changed []string) Event {
	if changed == nil {
		changed = []string{}
	}
	return Event{Action: Action{Kind: kind, Op: OpUpdate}, ResourceID: id, Metadata: Change{ChangedFields: changed}}
}

// StatusChanged records a status transition.
func StatusChanged(kind Kind, id uuid.UUID, from, to string) Event {
	return Event{Action: Action{Kind: kind, Op: OpStatusUpdate}, ResourceID: id, Metadata: StatusChange{From: from, To: to}}
}

// PayloadChanged records a payload replacement.
func PayloadChanged(kind Kind, id uuid.UUID, previousSHA, sha string, changedKeys []string) Event {
	if changedKeys == nil {
		changedKeys = []string{}
	}
	return Event{
		Action:     Action{Kind: kind, Op: OpPayloadUpdate},
		ResourceID: id,
		Metadata:   PayloadChange{PreviousSHA256: previousSHA, SHA256: sha, ChangedKeys: changedKeys},
	}
}

// Deleted records a delete.
func Deleted(kind Kind, id uuid.UUID, d Deletion) Event {
	return Event{Action: Action{Kind: kind, Op: OpDelete}, ResourceID: id, Metadata: d}
}

// ErrInvalidEvent is returned for events that break the action/shape pairing
// or miss required fields. It signals a programming error.
var ErrInvalidEvent = errors.New("invalid audit event")

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// expectedShape maps each successful op to its only valid metadata shape.
var expectedShape = map[Op]string{
	OpGet:           Lookup{}.shape(),
	OpList:          Listing{}.shape(),
	OpCreate:        Creation{}.shape(),
	OpUpdate:        Change{}.shape(),
	OpStatusUpdate:  StatusChange{}.shape(),
	OpPayloadUpdate: PayloadChange{}.shape(),
	OpDelete:        Deletion{}.shape(),
	OpExport:        Exportation{}.shape(),
}

// Validate checks the event at the write boundary.
func (e Event) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidEvent, e.Action, fmt.Sprintf(format, args...))
	}

	if !e.Action.Kind.Valid() {
		return invalid("unknown kind")
	}
	want, ok := expectedShape[e.Action.Op]
	if !ok {
		return invalid("unknown op")
	}
	if e.Metadata == nil {
		return invalid("metadata is required")
	}

	got := e.Metadata.shape()
	if e.Action.NotFound {
		if e.Action.Op.Collective() {
			return invalid("%s has no not-found outcome", e.Action.Op)
		}
		switch m := e.Metadata.(type) {
		case Lookup:
		case MissingParent:
			if e.Action.Op != OpCreate {
				return invalid("missing parent applies to create only")
			}
			if !m.Parent.Valid() || m.Parent == e.Action.Kind {
				return invalid("invalid parent kind %q", m.Parent)
			}
		default:
			return invalid("not-found outcome carries %s metadata", got)
		}
		return nil
	}

	if got != want {
		return invalid("expected %s metadata, got %s", want, got)
	}

	switch m := e.Metadata.(type) {
	case Listing:
		if err := (paging.Page{Limit: m.Limit, Offset: m.Offset}).Validate(); err != nil {
			return invalid("page: %v", err)
		}
		if m.ResultCount != len(m.IDs) || m.ResultCount > m.Limit {
			return invalid("result_count %d does not match the page", m.ResultCount)
		}
		if m.TotalCount < 0 {
			return invalid("negative total_count")
		}
	case Change:
		if m.ChangedFields == nil {
			return invalid("changed_fields is required")
		}
	case StatusChange:
		if m.From == "" || m.To == "" {
			return invalid("from and to are required")
		}
	case PayloadChange:
		if !sha256Hex.MatchString(m.SHA256) {
			return invalid("sha256 is required")
		}
		if m.PreviousSHA256 != "" && !sha256Hex.MatchString(m.PreviousSHA256) {
			return invalid("malformed previous_sha256")
		}
	case Deletion:
		if m.Mode != DeleteSoft && m.Mode != DeleteHard {
			return invalid("mode must be soft or hard")
		}
	case Exportation:
		if e.Action.Kind != KindAuditLog {
			return invalid("only the audit log is exported")
		}
		if m.RecordCount < 0 {
			return invalid("negative record_count")
		}
	}
	return nil
}

// Payload renders the metadata stored with the record. The primary id is
// always present under "<kind>_id"; list and export events store null there.
func (e Event) Payload() map[string]any {
	out := e.Metadata.fields()
	if e.Action.Op.Collective() && !e.Action.NotFound {
		out[e.Action.Kind.IDKey()] = nil
	} else {
		out[e.Action.Kind.IDKey()] = e.ResourceID.String()
	}
	return out
}

// Err is what the caller of a committed unit of work sees: nil for a
// successful outcome and an error matching apperr.ErrNotFound for a not-found
// one. A missing parent carries the caller-safe "<Parent> not found" message.
func (e Event) Err() error {
	if !e.Action.NotFound {
		return nil
	}
	if m, ok := e.Metadata.(MissingParent); ok {
		return apperr.NotFound(m.Parent.Title() + " not found")
	}
	return fmt.Errorf("%s %s: %w", e.Action.Kind, e.ResourceID, apperr.ErrNotFound)
}
