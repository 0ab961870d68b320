// Package storage persists entity snapshots outside the simulation thread and
// rebuilds the world from them at boot.
package storage

import (
	"context"
	"errors"

	"github.com/zeusync/simkernel/internal/core/element"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrClosed   = errors.New("storage closed")
)

// Record is one persisted entity. Snapshot is the flat attribute map produced
// by entity.Snapshot with references kept as markers.
type Record struct {
	ID       string
	IntID    int64
	Type     string
	Parent   string
	Snapshot element.Map
}

type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	// Save writes rec. Writes whose encoded snapshot is unchanged are skipped.
	Save(ctx context.Context, rec Record) error
	// Delete removes id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
	// List returns every record ordered by integer id.
	List(ctx context.Context) ([]Record, error)
	Statistics() Statistics
	Close() error
}

type Statistics struct {
	Writes  uint64
	Skipped uint64
	Deletes uint64
	Records int
}
