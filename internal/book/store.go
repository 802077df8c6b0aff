/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package book

import (
	"context"
	"errors"
	"sync"
)

// Errors a Store reports from Load. Any other load error is treated like
// ErrPersistenceCorrupt by the session.
var (
	ErrNotFound           = errors.New("book: no saved book")
	ErrPersistenceCorrupt = errors.New("book: saved book is unreadable")
)

// Store is the persistence collaborator: it loads and saves the ordered page
// strings of one book.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, pages []string) error
}

// MemoryStore keeps the last saved pages in memory.
type MemoryStore struct {
	mu    sync.Mutex
	pages []string
	saves int
}

// NewMemoryStore returns a store seeded with pages; nil means nothing saved.
func NewMemoryStore(pages []string) *MemoryStore {
	if pages == nil {
		return &MemoryStore{}
	}
	return &MemoryStore{pages: append([]string(nil), pages...)}
}

func (m *MemoryStore) Load(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages == nil {
		return nil, ErrNotFound
	}
	return append([]string(nil), m.pages...), nil
}

func (m *MemoryStore) Save(_ context.Context, pages []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append([]string(nil), pages...)
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
