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
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"pixelbook/internal/book"
)

func openTestSQLite(t *testing.T, path, name string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), path, name)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "book.sqlite")
	s := openTestSQLite(t, path, "")
	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on a fresh database, got %v", err)
	}
	pages := make([]string, book.MaxPages+5)
	pages[0], pages[3], pages[book.MaxPages+2] = "hello", "world", "lost"
	if err := s.Save(ctx, pages); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, []string{"hello", "", "", "again"}); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != book.MaxPages || got[0] != "hello" || got[3] != "again" {
		t.Fatalf("unexpected pages %q", got[:4])
	}
	if v, err := s.SchemaVersion(ctx); err != nil || v != sqliteSchemaVersion {
		t.Fatalf("schema version = %d (%v), want %d", v, err, sqliteSchemaVersion)
	}
}

func TestSQLiteStoreKeepsBooksApart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.sqlite")
	a := openTestSQLite(t, path, "alpha")
	if err := a.Save(ctx, []string{"from alpha"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	b := openTestSQLite(t, path, "beta")
	if _, err := b.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("beta should be empty, got %v", err)
	}
	if err := b.Save(ctx, []string{"from beta"}); err != nil {
		t.Fatal(err)
	}
	names, err := b.Books(ctx)
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if strings.Join(names, ",") != "beta,alpha" && strings.Join(names, ",") != "alpha,beta" {
		t.Fatalf("unexpected books %v", names)
	}
}

func TestSQLiteStoreIgnoresPagesOutsideTheBook(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, filepath.Join(t.TempDir(), "book.sqlite"), "odd")
	if err := s.Save(ctx, []string{"keep"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO pages(book_id, idx, text) SELECT id, 70, 'stray' FROM books WHERE name='odd'`); err != nil {
		t.Fatalf("insert stray page: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != book.MaxPages || got[0] != "keep" {
		t.Fatalf("unexpected pages after stray row")
	}
}

func TestSQLiteMigrationFromVersionOne(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.sqlite")
	s := openTestSQLite(t, path, "")
	if _, err := s.db.ExecContext(ctx, `UPDATE version SET schema=1 WHERE id=1`); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	again := openTestSQLite(t, path, "")
	if v, _ := again.SchemaVersion(ctx); v != sqliteSchemaVersion {
		t.Fatalf("expected migration to %d, got %d", sqliteSchemaVersion, v)
	}
}
