package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"depflow/internal/snapshot"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			size REAL,
			meta JSON
		);`,
		`CREATE TABLE IF NOT EXISTS links (
			seq INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			target TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS relations (
			seq INTEGER PRIMARY KEY,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			size REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveDocument replaces the stored snapshot in one transaction.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *snapshot.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"modules", "links", "relations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if doc.IsTable() {
		if err := saveRelations(ctx, tx, doc.Table); err != nil {
			return err
		}
		return tx.Commit()
	}

	snap := doc.Snapshot
	if snap == nil {
		snap = &snapshot.Snapshot{}
	}
	if err := saveModules(ctx, tx, snap); err != nil {
		return err
	}
	if err := saveLinks(ctx, tx, snap.Links); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSnapshot stores the object form.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	return s.SaveDocument(ctx, &snapshot.Document{Snapshot: snap})
}

func saveModules(ctx context.Context, tx *sql.Tx, snap *snapshot.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO modules (id, position, size, meta) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, id := range snap.ModuleIDs() {
		m := snap.Modules[id]
		var size sql.NullFloat64
		if m.Size != nil {
			size = sql.NullFloat64{Float64: *m.Size, Valid: true}
		}
		var meta []byte
		if len(m.Meta) > 0 {
			if meta, err = json.Marshal(m.Meta); err != nil {
				return fmt.Errorf("module %q: %w", id, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, id, i, size, meta); err != nil {
			return fmt.Errorf("failed to save module %q: %w", id, err)
		}
	}
	return nil
}

func saveLinks(ctx context.Context, tx *sql.Tx, links []snapshot.Link) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO links (seq, source, target) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range links {
		if _, err := stmt.ExecContext(ctx, i, l.Source, l.Target); err != nil {
			return fmt.Errorf("failed to save link %d: %w", i, err)
		}
	}
	return nil
}

func saveRelations(ctx context.Context, tx *sql.Tx, table []snapshot.Relation) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO relations (seq, source, target, size) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range table {
		var size sql.NullFloat64
		if r.Size != nil {
			size = sql.NullFloat64{Float64: *r.Size, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, r.Source, r.Target, size); err != nil {
			return fmt.Errorf("failed to save relation %d: %w", i, err)
		}
	}
	return nil
}

// LoadDocument returns the table form when relations were saved and the
// object form otherwise.
func (s *SQLiteStore) LoadDocument(ctx context.Context) (*snapshot.Document, error) {
	table, err := s.loadRelations(ctx)
	if err != nil {
		return nil, err
	}
	if len(table) > 0 {
		return &snapshot.Document{Table: table}, nil
	}

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &snapshot.Document{Snapshot: snap}, nil
}

// LoadSnapshot returns modules in saved order and links in seq order.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	snap := &snapshot.Snapshot{
		Links:   []snapshot.Link{},
		Modules: make(map[string]snapshot.Module),
	}

	// 1. Load Modules
	rows, err := s.db.QueryContext(ctx, "SELECT id, size, meta FROM modules ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			size sql.NullFloat64
			meta []byte
		)
		if err := rows.Scan(&id, &size, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		var m snapshot.Module
		if size.Valid {
			v := size.Float64
			m.Size = &v
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Meta); err != nil {
				return nil, fmt.Errorf("module %q: bad meta: %w", id, err)
			}
		}
		snap.Modules[id] = m
		snap.Order = append(snap.Order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. Load Links
	linkRows, err := s.db.QueryContext(ctx, "SELECT source, target FROM links ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var l snapshot.Link
		if err := linkRows.Scan(&l.Source, &l.Target); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		snap.Links = append(snap.Links, l)
	}
	return snap, linkRows.Err()
}

func (s *SQLiteStore) loadRelations(ctx context.Context) ([]snapshot.Relation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source, target, size FROM relations ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Relation
	for rows.Next() {
		var (
			r    snapshot.Relation
			size sql.NullFloat64
		)
		if err := rows.Scan(&r.Source, &r.Target, &size); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		if size.Valid {
			v := size.Float64
			r.Size = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
