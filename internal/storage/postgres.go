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
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pixelbook/internal/book"
	applog "pixelbook/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps books in a shared Postgres database with the same
// logical layout as SQLiteStore.
type PostgresStore struct {
	db   *sql.DB
	name string
	log  *slog.Logger
}

// OpenPostgres connects through the pgx stdlib driver and applies pending
// migrations.
func OpenPostgres(ctx context.Context, dsn, name string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	l := applog.WithComponent("storage").With(slog.String("backend", "postgres"))
	if err := applyMigrations(ctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db, name: bookName(name), log: l}, nil
}

// applyMigrations runs the embedded migrations in filename order, recording
// each in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB, l *slog.Logger) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, fname := range files {
		v, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[v] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, v, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
		l.InfoContext(ctx, "applied migration", slog.String("file", fname))
	}
	return nil
}

func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

// Load returns the pages of the store's book.
func (s *PostgresStore) Load(ctx context.Context) ([]string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id::text FROM books WHERE name=$1`, s.name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT idx, text FROM pages WHERE book_id=$1 ORDER BY idx`, id)
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
		if idx >= book.MaxPages {
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

// Save replaces the book's pages in one transaction.
func (s *PostgresStore) Save(ctx context.Context, pages []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	var id string
	err = tx.QueryRowContext(ctx, `INSERT INTO books(id, name, updated_at) VALUES($1, $2, now())
		ON CONFLICT(name) DO UPDATE SET updated_at=now() RETURNING id::text`, uuid.NewString(), s.name).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert book: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE book_id=$1`, id); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	for i, p := range normalize(pages) {
		if p == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO pages(book_id, idx, text) VALUES($1, $2, $3)`, id, i, p); err != nil {
			return fmt.Errorf("insert page %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// BookID names the book inside the database.
func (s *PostgresStore) BookID() string { return s.name }
