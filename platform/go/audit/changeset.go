package audit

import (
	"sort"
	"time"
)

// ChangeSet collects the names of submitted fields whose value differs from
// the stored row. Fields that were not submitted are ignored.
type ChangeSet struct {
	fields []string
}

// String compares a submitted string against the current value.
func (c *ChangeSet) String(name string, submitted *string, current string) {
	if submitted != nil && *submitted != current {
		c.fields = append(c.fields, name)
	}
}

// Time compares a submitted nullable timestamp against the current value.
// submitted is nil when the field was not sent; a non-nil submitted holding
// nil clears the column.
func (c *ChangeSet) Time(name string, submitted **time.Time, current *time.Time) {
	if submitted == nil {
		return
	}
	next := *submitted
	switch {
	case next == nil && current == nil:
	case next == nil || current == nil:
		c.fields = append(c.fields, name)
	case !next.Equal(*current):
		c.fields = append(c.fields, name)
	}
}

// Has reports whether name changed.
func (c *ChangeSet) Has(name string) bool {
	for _, f := range c.fields {
		if f == name {
			return true
		}
	}
	return false
}

// Empty reports whether nothing changed.
func (c *ChangeSet) Empty() bool { return len(c.fields) == 0 }

// Fields returns the changed field names, sorted. Never nil.
func (c *ChangeSet) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	sort.Strings(out)
	return out
}
