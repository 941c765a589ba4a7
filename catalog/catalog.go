// SPDX-License-Identifier: MIT

// Package catalog indexes stored objects (recordings, models, location
// sets) in SQLite so they can be found by ID and listed by kind without
// touching blob storage. The schema is managed by embedded golang-migrate
// migrations applied on Open.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/katalvlaran/supereeg/codec"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound is returned by Get for an unknown ID.
	ErrNotFound = errors.New("catalog: entry not found")

	// ErrExists is returned by Record when the ID or blob key is taken.
	ErrExists = errors.New("catalog: entry already exists")
)

// Entry describes one stored object.
type Entry struct {
	ID         string
	Kind       codec.Kind
	BlobKey    string
	NLocations int
	NSubjects  int
	NSamples   int
	CreatedAt  time.Time
	Meta       map[string]string
}

// Catalog is a SQLite-backed object index. Safe for concurrent use.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema. ":memory:" gives a private in-process catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	// one connection keeps ":memory:" coherent and serialises writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("catalog: %s: %w", pragma, err)
		}
	}
	if err = migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// migrateUp applies all pending embedded migrations. The migrate instance
// is not closed because that would close db.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("catalog: migrations source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("catalog: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("catalog: migrate instance: %w", err)
	}
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("catalog: migration up failed: %w", err)
	}

	return nil
}

// Version reports the applied schema version.
func (c *Catalog) Version(ctx context.Context) (uint, error) {
	var v uint
	err := c.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations LIMIT 1`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("catalog: version: %w", err)
	}

	return v, nil
}

// Record inserts e. A zero CreatedAt is stamped with the current time.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	if e.ID == "" || e.BlobKey == "" {
		return fmt.Errorf("catalog: record: id and blob key required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(nonNil(e.Meta))
	if err != nil {
		return fmt.Errorf("catalog: record %s: %w", e.ID, err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO objects (id, kind, blob_key, n_locations, n_subjects, n_samples, created_at, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind.String(), e.BlobKey, e.NLocations, e.NSubjects, e.NSamples, e.CreatedAt.UnixNano(), string(meta))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("catalog: record %s: %w", e.ID, ErrExists)
		}
		return fmt.Errorf("catalog: record %s: %w", e.ID, err)
	}

	return nil
}

const selectColumns = `SELECT id, kind, blob_key, n_locations, n_subjects, n_samples, created_at, meta FROM objects`

// Get returns the entry with the given ID.
func (c *Catalog) Get(ctx context.Context, id string) (Entry, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("catalog: get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: get %s: %w", id, err)
	}

	return e, nil
}

// List returns entries of the given kind (all kinds when kind is 0), oldest
// first.
func (c *Catalog) List(ctx context.Context, kind codec.Kind) ([]Entry, error) {
	query := selectColumns + ` ORDER BY created_at, id`
	var args []any
	if kind != 0 {
		query = selectColumns + ` WHERE kind = ? ORDER BY created_at, id`
		args = append(args, kind.String())
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list: %w", err)
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// Delete removes the entry, reporting whether it existed.
func (c *Catalog) Delete(ctx context.Context, id string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("catalog: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("catalog: delete %s: %w", id, err)
	}

	return n > 0, nil
}

// Close releases the database.
func (c *Catalog) Close() error { return c.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		kind    string
		created int64
		meta    string
	)
	if err := s.Scan(&e.ID, &kind, &e.BlobKey, &e.NLocations, &e.NSubjects, &e.NSamples, &created, &meta); err != nil {
		return Entry{}, err
	}
	k, err := codec.ParseKind(kind)
	if err != nil {
		return Entry{}, err
	}
	e.Kind = k
	e.CreatedAt = time.Unix(0, created).UTC()
	if err = json.Unmarshal([]byte(meta), &e.Meta); err != nil {
		return Entry{}, err
	}
	if len(e.Meta) == 0 {
		e.Meta = nil
	}

	return e, nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}

	return m
}
