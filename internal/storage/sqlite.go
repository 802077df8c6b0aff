/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pixelbook/internal/book"
	applog "pixelbook/internal/log"
	"pixelbook/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// sqliteSchemaVersion tracks the local schema. Bump it and add a case to
// migrateSQLite for breaking changes.
const sqliteSchemaVersion = 2

// SQLiteStore keeps books in an embedded SQLite database, one row per page.
// Several named books can share a database file.
type SQLiteStore struct {
	db   *sql.DB
	name string
	path string
	log  *slog.Logger
}

// OpenSQLite opens or creates the database at path, enables WAL and brings
// the schema up to date. name selects the book inside the database.
func OpenSQLite(ctx context.Context, path, name string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.ErrorContext(ctx, "sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.WarnContext(ctx, "enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		l.ErrorContext(ctx, "ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		l.ErrorContext(ctx, "migration failed", slog.Any("err", err))
		return nil, err
	}
	l.DebugContext(ctx, "sqlite ready")
	return &SQLiteStore{db: db, name: bookName(name), path: path, log: applog.WithComponent("storage").With(slog.String("backend", "sqlite"))}, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS books (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS pages (
			book_id  TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			idx      INTEGER NOT NULL,
			text     TEXT NOT NULL,
			PRIMARY KEY(book_id, idx)
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh database starts at 1 and is migrated forward like any other
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	_, err = db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES('page_slots', ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, fmt.Sprint(book.MaxPages))
	if err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// migrateSQLite applies incremental migrations up to sqliteSchemaVersion.
func migrateSQLite(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < sqliteSchemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_books_updated ON books(updated_at);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// Load returns the pages of the store's book.
func (s *SQLiteStore) Load(ctx context.Context) ([]string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM books WHERE name=?`, s.name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT idx, text FROM pages WHERE book_id=? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	defer func() { _ = rows.Close() }()
	pages := make([]string, book.MaxPages)
	for rows.Next() {
		var idx int
		var text string
		if err := rows.Scan(&idx, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
		}
		if idx < 0 || idx >= book.MaxPages {
			s.log.WarnContext(ctx, "ignoring page outside the book", slog.Int("idx", idx))
			continue
		}
		pages[idx] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	return pages, nil
}

// Save replaces the book's pages in one transaction. Empty pages are not stored.
func (s *SQLiteStore) Save(ctx context.Context, pages []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `INSERT INTO books(id, name, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at=excluded.updated_at`, uuid.NewString(), s.name, now); err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}
	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM books WHERE name=?`, s.name).Scan(&id); err != nil {
		return fmt.Errorf("read book id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE book_id=?`, id); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pages(book_id, idx, text) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare page insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, p := range normalize(pages) {
		if p == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, i, p); err != nil {
			return fmt.Errorf("insert page %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Books lists the book names stored in the database, most recent first.
func (s *SQLiteStore) Books(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM books ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// BookID names the book inside the database.
func (s *SQLiteStore) BookID() string { return s.name }
