// Package sqlite provides the SQLite-backed snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zeusync/simkernel/internal/core/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id         TEXT PRIMARY KEY,
	int_id     INTEGER NOT NULL,
	type       TEXT NOT NULL,
	parent     TEXT NOT NULL DEFAULT '',
	digest     INTEGER NOT NULL,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entities_int_id ON entities (int_id);
`

var _ storage.Store = (*Store)(nil)

// Store persists entity records in one SQLite table. It keeps the digest of
// every stored snapshot in memory to skip unchanged writes.
type Store struct {
	sqlDB *sql.DB

	mu      sync.Mutex
	digests map[string]uint64

	writes  atomic.Uint64
	skipped atomic.Uint64
	deletes atomic.Uint64
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; SQLite serialises writes anyway.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{sqlDB: sqlDB, digests: make(map[string]uint64)}
	if err := s.loadDigests(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) loadDigests() error {
	rows, err := s.sqlDB.Query(`SELECT id, digest FROM entities`)
	if err != nil {
		return fmt.Errorf("load digests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     string
			digest int64
		)
		if err := rows.Scan(&id, &digest); err != nil {
			return fmt.Errorf("load digests: %w", err)
		}
		s.digests[id] = uint64(digest)
	}
	return rows.Err()
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Save(ctx context.Context, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	data, digest, err := storage.Encode(rec.Snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev, known := s.digests[rec.ID]
	s.mu.Unlock()
	if known && prev == digest {
		s.skipped.Add(1)
		return nil
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO entities (id, int_id, type, parent, digest, data, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   int_id = excluded.int_id,
		   type = excluded.type,
		   parent = excluded.parent,
		   digest = excluded.digest,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.IntID, rec.Type, rec.Parent, int64(digest), data, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	s.digests[rec.ID] = digest
	s.mu.Unlock()
	s.writes.Add(1)
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, int_id, type, parent, data FROM entities WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Record{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("load %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.digests, id)
	s.mu.Unlock()
	s.deletes.Add(1)
	return nil
}

func (s *Store) List(ctx context.Context) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, int_id, type, parent, data FROM entities ORDER BY int_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

func (s *Store) Statistics() storage.Statistics {
	s.mu.Lock()
	n := len(s.digests)
	s.mu.Unlock()
	return storage.Statistics{
		Writes:  s.writes.Load(),
		Skipped: s.skipped.Load(),
		Deletes: s.deletes.Load(),
		Records: n,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (storage.Record, error) {
	var (
		rec  storage.Record
		data []byte
	)
	if err := row.Scan(&rec.ID, &rec.IntID, &rec.Type, &rec.Parent, &data); err != nil {
		return storage.Record{}, err
	}
	snap, err := storage.Decode(data)
	if err != nil {
		return storage.Record{}, err
	}
	rec.Snapshot = snap
	return rec, nil
}
