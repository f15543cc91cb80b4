// Package lifecycle describes the status machines of tenant resources.
package lifecycle

import (
	"fmt"
	"sort"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

// Machine is a set of statuses and the transitions allowed between them.
type Machine struct {
	initial string
	next    map[string]map[string]struct{}
}

// New builds a machine starting at initial. Every status must appear as a
// key of transitions, terminal ones with no targets.
func New(initial string, transitions map[string][]string) Machine {
	m := Machine{initial: initial, next: make(map[string]map[string]struct{}, len(transitions))}
	for from, targets := range transitions {
		set := make(map[string]struct{}, len(targets))
		for _, to := range targets {
			if _, ok := transitions[to]; !ok {
				panic(fmt.Sprintf("lifecycle: %q targets undeclared status %q", from, to))
			}
			set[to] = struct{}{}
		}
		m.next[from] = set
	}
	if _, ok := m.next[initial]; !ok {
		panic(fmt.Sprintf("lifecycle: undeclared initial status %q", initial))
	}
	return m
}

// Initial is the status of a newly created resource.
func (m Machine) Initial() string { return m.initial }

// Known reports whether s is a status of the machine.
func (m Machine) Known(s string) bool {
	_, ok := m.next[s]
	return ok
}

// Allows reports whether a resource may move from one status to another.
// Staying on the current status is always allowed.
func (m Machine) Allows(from, to string) bool {
	if from == to {
		return m.Known(to)
	}
	_, ok := m.next[from][to]
	return ok
}

// Statuses lists every status, sorted.
func (m Machine) Statuses() []string {
	out := make([]string, 0, len(m.next))
	for s := range m.next {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ParseStatus validates a requested status before any unit of work.
func (m Machine) ParseStatus(field, raw string) (string, error) {
	if !m.Known(raw) {
		return "", apperr.Invalid(field, "unknown status")
	}
	return raw, nil
}

// Transition returns a conflict when from cannot move to to.
func (m Machine) Transition(from, to string) error {
	if m.Allows(from, to) {
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("cannot change status from %s to %s", from, to))
}
