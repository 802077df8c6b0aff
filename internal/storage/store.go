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
	"fmt"
	"io"
	"strings"

	"pixelbook/internal/book"
	"pixelbook/internal/config"
)

// Load errors, shared with the book package so sessions can match them.
var (
	ErrNotFound           = book.ErrNotFound
	ErrPersistenceCorrupt = book.ErrPersistenceCorrupt
)

// Store is a book.Store that owns a resource.
type Store interface {
	book.Store
	io.Closer
}

// Open builds the store selected by cfg.Storage.Backend. secret is the
// Postgres password and is ignored by the other backends.
func Open(ctx context.Context, cfg config.AppConfig, secret string) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch backend {
	case "", "file":
		p, err := cfg.ResolvedStoragePath()
		if err != nil {
			return nil, err
		}
		return NewFileStore(p), nil
	case "sqlite":
		p, err := cfg.ResolvedStoragePath()
		if err != nil {
			return nil, err
		}
		return OpenSQLite(ctx, p, cfg.Storage.Book)
	case "postgres":
		dsn, err := cfg.Storage.PostgresURL(secret)
		if err != nil {
			return nil, err
		}
		return OpenPostgres(ctx, dsn, cfg.Storage.Book)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// normalize pads or cuts pages to book.MaxPages.
func normalize(pages []string) []string {
	out := make([]string, book.MaxPages)
	copy(out, pages)
	return out
}

func bookName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "default"
}
