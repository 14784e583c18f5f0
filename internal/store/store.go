// Package store provides the blob store collaborator that owns deployed
// function source. Functions are immutable once saved and retrieved by
// identifier; the execution plane holds only transient copies.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no function exists under the given id.
var ErrNotFound = errors.New("function not found")

// BlobStore persists function source by identifier.
type BlobStore interface {
	// Save stores source under id. Saving is write-once per id in
	// practice: deploys always mint fresh identifiers.
	Save(ctx context.Context, id, source string) error

	// Get returns the source stored under id, byte-for-byte, or
	// ErrNotFound.
	Get(ctx context.Context, id string) (string, error)

	// Exists reports whether a function is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
}

// objectName maps a function id to its storage key. The functions/{id}.js
// layout is shared by every store implementation.
func objectName(id string) string {
	return fmt.Sprintf("functions/%s.js", id)
}
