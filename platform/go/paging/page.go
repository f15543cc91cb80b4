// Package paging holds the offset pagination window shared by list operations.
package paging

import (
	"fmt"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page is an offset window. Values outside range are rejected, never clamped.
type Page struct {
	Limit  int
	Offset int
}

// Default returns the window used when a caller supplies no parameters.
func Default() Page {
	return Page{Limit: DefaultLimit}
}

// Validate checks limit in [1, MaxLimit] and offset >= 0.
func (p Page) Validate() error {
	fe := apperr.FieldErrors{}
	if p.Limit < 1 || p.Limit > MaxLimit {
		fe.Add("limit", fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	if p.Offset < 0 {
		fe.Add("offset", "offset must be zero or greater")
	}
	return fe.Err()
}

// Window returns the part of items covered by p. Used by in-memory listings.
func Window[T any](items []T, p Page) []T {
	start := min(max(p.Offset, 0), len(items))
	end := min(start+max(p.Limit, 0), len(items))
	return items[start:end]
}
