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
	"testing"

	"github.com/google/uuid"
)

func TestMigrationFilesAreOrderedAndVersioned(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
	var prev int64
	for _, f := range files {
		v, err := parseVersion(f)
		if err != nil {
			t.Fatalf("parseVersion(%s): %v", f, err)
		}
		if v <= prev {
			t.Fatalf("migration %s is out of order", f)
		}
		prev = v
	}
	if _, err := parseVersion("nounderscore.sql"); err == nil {
		t.Fatalf("expected an error for a name without version prefix")
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("PXB_PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PXB_PG_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn, "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := s.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(ctx, []string{"a", "", "c"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected pages %q", got[:3])
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM books WHERE name=$1`, s.name)
}
