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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pixelbook/internal/book"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestFileStore(t *testing.T) (*FileStore, *fakeClock) {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "book.json"))
	c := &fakeClock{t: time.Date(2030, 1, 2, 12, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, c
}

func TestFileStoreMissingIsNotFound(t *testing.T) {
	s, _ := newTestFileStore(t)
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestFileStore(t)
	if err := s.Save(ctx, []string{"one", "", "three"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	id := s.BookID()
	if id == "" {
		t.Fatalf("expected a book id after save")
	}
	again := NewFileStore(s.Path())
	pages, err := again.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != book.MaxPages || pages[0] != "one" || pages[2] != "three" {
		t.Fatalf("unexpected pages %q", pages[:3])
	}
	if again.BookID() != id {
		t.Fatalf("book id changed across reload: %s vs %s", again.BookID(), id)
	}
	raw, _ := os.ReadFile(s.Path())
	if !strings.Contains(string(raw), `"schema_version": 1`) {
		t.Fatalf("document missing schema_version:\n%s", raw)
	}
}

func TestFileStoreAcceptsBareArray(t *testing.T) {
	s, _ := newTestFileStore(t)
	if err := os.WriteFile(s.Path(), []byte(`["a","b"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	pages, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pages) != book.MaxPages || pages[1] != "b" {
		t.Fatalf("legacy array not normalized: len=%d", len(pages))
	}
}

func TestFileStoreCorruptWithoutBackup(t *testing.T) {
	cases := map[string]string{
		"garbage":      "{not json",
		"wrong types":  `{"schema_version": 1, "pages": [1, 2]}`,
		"missing keys": `{"book_id": "x"}`,
		"future":       `{"schema_version": 99, "pages": []}`,
		"empty":        "   ",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestFileStore(t)
			if err := os.WriteFile(s.Path(), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Load(context.Background()); !errors.Is(err, ErrPersistenceCorrupt) {
				t.Fatalf("expected ErrPersistenceCorrupt, got %v", err)
			}
		})
	}
}

func TestFileStoreFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestFileStore(t)
	if err := s.Save(ctx, []string{"first"}); err != nil {
		t.Fatal(err)
	}
	clock.advance(2 * time.Minute)
	if err := s.Save(ctx, []string{"second"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	pages, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load should recover from backup: %v", err)
	}
	if pages[0] != "first" {
		t.Fatalf("expected backup content, got %q", pages[0])
	}
}

func TestFileStoreBackupsAreRateLimitedAndPruned(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestFileStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, []string{"x"}); err != nil {
			t.Fatal(err)
		}
		clock.advance(10 * time.Second)
	}
	list, err := s.Backups()
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected a single backup within one minute, got %d", len(list))
	}
	for i := 0; i < 15; i++ {
		clock.advance(2 * time.Minute)
		if err := s.Save(ctx, []string{"x"}); err != nil {
			t.Fatal(err)
		}
	}
	list, _ = s.Backups()
	if len(list) != BackupKeep {
		t.Fatalf("expected %d backups after pruning, got %d", BackupKeep, len(list))
	}
}

func TestFileStoreRateLimitSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestFileStore(t)
	_ = s.Save(ctx, []string{"a"})
	_ = s.Save(ctx, []string{"b"})
	reopened := NewFileStore(s.Path())
	reopened.now = func() time.Time { return clock.t.Add(20 * time.Second) }
	_ = reopened.Save(ctx, []string{"c"})
	list, _ := s.Backups()
	if len(list) != 1 {
		t.Fatalf("restart should not bypass the backup interval, got %d backups", len(list))
	}
}
