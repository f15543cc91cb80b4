// Package storage writes export objects to the local filesystem or to
// Google Cloud Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ObjectWriter creates objects under a backend-specific root.
type ObjectWriter interface {
	// Create opens key for writing. The object becomes visible when the
	// writer is closed; cancelling ctx before Close discards it.
	Create(ctx context.Context, key string) (io.WriteCloser, error)
	// URI names where key is stored, for logs and command output.
	URI(key string) string
}

// ResolveObjectLocation builds the key of an organization's object:
// <prefix>/<organization id>/<name>. prefix is optional.
func ResolveObjectLocation(prefix string, org uuid.UUID, name string) (string, error) {
	if org == uuid.Nil {
		return "", fmt.Errorf("organization is required")
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("object name is required")
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("invalid object name %q", name)
		}
	}

	key := org.String() + "/" + name
	if prefix = strings.Trim(strings.TrimSpace(prefix), "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key, nil
}
