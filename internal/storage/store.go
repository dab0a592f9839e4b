// Package storage persists snapshot documents in SQLite so scans can be
// exported once and served many times.
package storage

import (
	"context"

	"depflow/internal/snapshot"
)

// SnapshotStore reads and replaces the stored snapshot document.
type SnapshotStore interface {
	// SaveDocument replaces whatever was stored before.
	SaveDocument(ctx context.Context, doc *snapshot.Document) error

	// LoadDocument returns the stored document in the form it was saved.
	LoadDocument(ctx context.Context) (*snapshot.Document, error)

	Close() error
}

var _ SnapshotStore = (*SQLiteStore)(nil)
