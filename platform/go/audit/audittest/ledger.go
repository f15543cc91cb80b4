// Package audittest provides an in-memory audit ledger for repositories that
// do not run on Postgres.
package audittest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/audit"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/tenant"
)

// Entry is one committed event.
type Entry struct {
	OrganizationID uuid.UUID
	Actor          string
	Event          audit.Event
}

// Action is the stored action name.
func (e Entry) Action() string { return e.Event.Action.String() }

// Metadata returns the stored metadata as decoded JSON.
func (e Entry) Metadata() map[string]any {
	raw, err := json.Marshal(e.Event.Payload())
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

// Ledger keeps committed events in order.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewLedger() *Ledger { return &Ledger{} }

// Run mirrors audit.Recorder.Run. When fn fails or records nothing, rollback
// is called and the ledger is left untouched.
func (l *Ledger) Run(tc tenant.Context, fn func(*audit.Scope) error, rollback func()) error {
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}

	scope := audit.NewScope(tc)
	if err := fn(scope); err != nil {
		rollback()
		return err
	}
	ev, ok := scope.Event()
	if !ok {
		rollback()
		return audit.ErrNotRecorded
	}

	l.mu.Lock()
	l.entries = append(l.entries, Entry{OrganizationID: tc.OrganizationID, Actor: tc.ActorID, Event: ev})
	l.mu.Unlock()
	return ev.Err()
}

// Entries returns a copy of every committed entry.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len is the number of committed entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Count returns how many entries carry action, across all organizations.
func (l *Ledger) Count(action string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Action() == action {
			n++
		}
	}
	return n
}

// Last returns the most recent entry. It panics on an empty ledger.
func (l *Ledger) Last() Entry {
	entries := l.Entries()
	if len(entries) == 0 {
		panic("audittest: ledger is empty")
	}
	return entries[len(entries)-1]
}

// Referencing returns the entries of org whose primary id is id.
func (l *Ledger) Referencing(org, id uuid.UUID) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.OrganizationID == org && !e.Event.Action.Op.Collective() && e.Event.ResourceID == id {
			out = append(out, e)
		}
	}
	return out
}
