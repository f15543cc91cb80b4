package audit

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Metadata is the sealed set of per-action payload shapes. Only the types in
// this file implement it.
type Metadata interface {
	shape() string
	fields() map[string]any
}

// Lookup carries nothing beyond the primary id. Used by get and by every
// not-found action.
type Lookup struct{}

// Listing describes what a list call returned. ResultCount is the number of
// rows on the page; TotalCount the number of matching rows in scope.
type Listing struct {
	Limit       int
	Offset      int
	ResultCount int
	TotalCount  int
	IDs         []uuid.UUID
	Filters     map[string]string
}

// Creation names the rows a new resource was attached to.
type Creation struct {
	Related map[string]uuid.UUID
	Status  string
}

// Change lists the fields whose submitted value differed from the stored one.
type Change struct {
	ChangedFields []string
}

// StatusChange records a status transition. From equals To for a no-op update.
type StatusChange struct {
	From string
	To   string
}

// PayloadChange records a payload replacement by content hash.
type PayloadChange struct {
	PreviousSHA256 string
	SHA256         string
	ChangedKeys    []string
}

// Delete modes.
const (
	DeleteSoft = "soft"
	DeleteHard = "hard"
)

// Deletion captures enough to reconstruct the business impact of a delete.
type Deletion struct {
	Mode       string
	Related    map[string]uuid.UUID
	Status     string
	Dependents map[string]int
}

// MissingParent records a create rejected because the referenced parent does
// not exist inside the caller's organization.
type MissingParent struct {
	Parent   Kind
	ParentID uuid.UUID
}

// Exportation describes a ledger export. Since and Action echo the filters
// the export ran with; the zero value of either means unfiltered.
type Exportation struct {
	RecordCount int
	Since       *time.Time
	Action      string
}

func (Lookup) shape() string        { return "lookup" }
func (Listing) shape() string       { return "listing" }
func (Creation) shape() string      { return "creation" }
func (Change) shape() string        { return "change" }
func (StatusChange) shape() string  { return "status_change" }
func (PayloadChange) shape() string { return "payload_change" }
func (Deletion) shape() string      { return "deletion" }
func (MissingParent) shape() string { return "missing_parent" }
func (Exportation) shape() string   { return "exportation" }

func (Lookup) fields() map[string]any { return map[string]any{} }

func (m Listing) fields() map[string]any {
	ids := make([]string, len(m.IDs))
	for i, id := range m.IDs {
		ids[i] = id.String()
	}
	filters := m.Filters
	if filters == nil {
		filters = map[string]string{}
	}
	return map[string]any{
		"limit":        m.Limit,
		"offset":       m.Offset,
		"result_count": m.ResultCount,
		"total_count":  m.TotalCount,
		"result_ids":   ids,
		"filters":      filters,
	}
}

func (m Creation) fields() map[string]any {
	out := relatedFields(m.Related)
	if m.Status != "" {
		out["status"] = m.Status
	}
	return out
}

func (m Change) fields() map[string]any {
	changed := append([]string{}, m.ChangedFields...)
	sort.Strings(changed)
	return map[string]any{"changed_fields": changed}
}

func (m StatusChange) fields() map[string]any {
	return map[string]any{"from": m.From, "to": m.To}
}

func (m PayloadChange) fields() map[string]any {
	keys := append([]string{}, m.ChangedKeys...)
	sort.Strings(keys)
	var previous any
	if m.PreviousSHA256 != "" {
		previous = m.PreviousSHA256
	}
	return map[string]any{"previous_sha256": previous, "sha256": m.SHA256, "changed_keys": keys}
}

func (m Deletion) fields() map[string]any {
	out := relatedFields(m.Related)
	out["mode"] = m.Mode
	if m.Status != "" {
		out["status"] = m.Status
	}
	dependents := m.Dependents
	if dependents == nil {
		dependents = map[string]int{}
	}
	out["dependents"] = dependents
	return out
}

func (m MissingParent) fields() map[string]any {
	out := map[string]any{"missing": string(m.Parent)}
	out[m.Parent.IDKey()] = m.ParentID.String()
	return out
}

func (m Exportation) fields() map[string]any {
	var since any
	if m.Since != nil {
		since = m.Since.UTC().Format(time.RFC3339Nano)
	}
	var action any
	if m.Action != "" {
		action = m.Action
	}
	return map[string]any{
		"record_count": m.RecordCount,
		"filters":      map[string]any{"since": since, "action": action},
	}
}

func relatedFields(related map[string]uuid.UUID) map[string]any {
	out := make(map[string]any, len(related)+2)
	for k, v := range related {
		out[k] = v.String()
	}
	return out
}
