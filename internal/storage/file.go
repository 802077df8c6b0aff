/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	applog "pixelbook/internal/log"
)

const (
	BackupsDirName = "backups"
	// SchemaVersion is written into every saved document.
	SchemaVersion = 1
	// BackupInterval is the minimum spacing between two backups.
	BackupInterval = time.Minute
	// BackupKeep is how many backups survive pruning.
	BackupKeep = 10

	backupStamp = "20060102-150405"
)

//go:embed schema/book.schema.json
var bookSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(bookSchema))
})

type document struct {
	SchemaVersion int       `json:"schema_version"`
	BookID        string    `json:"book_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	Pages         []string  `json:"pages"`
}

// FileStore keeps the book as a JSON document. Writes go to a temp file that
// is renamed over the target; the previous document is copied to the backups
// folder at most once per BackupInterval.
type FileStore struct {
	mu         sync.Mutex
	path       string
	bookID     string
	lastBackup time.Time
	now        func() time.Time
	log        *slog.Logger
}

// NewFileStore returns a store for the document at path. Nothing is touched
// on disk until the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  time.Now,
		log:  applog.WithComponent("storage").With(slog.String("path", path)),
	}
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

// BookID returns the stable id of the loaded or saved book, if any.
func (s *FileStore) BookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookID
}

func (s *FileStore) backupsDir() string { return filepath.Join(filepath.Dir(s.path), BackupsDirName) }

// Load reads the document. A missing or unreadable document falls back to
// the newest backup that decodes.
func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := applog.WithOperation(s.log, "load")
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			l.WarnContext(ctx, "read book failed", slog.Any("err", err))
		}
		doc, berr := s.latestBackup()
		if berr != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
		}
		l.WarnContext(ctx, "book file missing, restored from backup")
		return s.adopt(doc), nil
	}
	doc, err := decodeDocument(b)
	if err != nil {
		l.WarnContext(ctx, "book file corrupt", slog.Any("err", err))
		bdoc, berr := s.latestBackup()
		if berr != nil {
			return nil, fmt.Errorf("%w: %v; backup attempt: %v", ErrPersistenceCorrupt, err, berr)
		}
		l.InfoContext(ctx, "restored from backup")
		return s.adopt(bdoc), nil
	}
	return s.adopt(doc), nil
}

func (s *FileStore) adopt(doc document) []string {
	if doc.BookID != "" {
		s.bookID = doc.BookID
	}
	return normalize(doc.Pages)
}

// Save writes pages transactionally.
func (s *FileStore) Save(ctx context.Context, pages []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := applog.WithOperation(s.log, "save")
	if s.bookID == "" {
		s.bookID = s.existingID()
	}
	if s.bookID == "" {
		s.bookID = uuid.NewString()
	}
	now := s.now()
	data, err := json.MarshalIndent(document{
		SchemaVersion: SchemaVersion,
		BookID:        s.bookID,
		UpdatedAt:     now.UTC(),
		Pages:         normalize(pages),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure book dir: %w", err)
	}
	if err := s.backupLocked(now); err != nil {
		l.WarnContext(ctx, "backup failed", slog.Any("err", err))
	}

	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp book: %w", err)
	}
	if err := os.Rename(temp, s.path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace book: %w", err)
	}
	l.DebugContext(ctx, "book saved", slog.Int("bytes", len(data)))
	return nil
}

// existingID reads the id of the document on disk so a store that saves
// without loading first keeps it.
func (s *FileStore) existingID() string {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	doc, err := decodeDocument(b)
	if err != nil {
		return ""
	}
	return doc.BookID
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// backupLocked copies the current document into the backups folder unless a
// backup was taken less than BackupInterval ago, then prunes old backups.
func (s *FileStore) backupLocked(now time.Time) error {
	if _, err := os.Stat(s.path); err != nil {
		return nil
	}
	if s.lastBackup.IsZero() {
		s.lastBackup = s.newestBackupTime(now.Location())
	}
	if !s.lastBackup.IsZero() && now.Sub(s.lastBackup) < BackupInterval {
		return nil
	}
	bdir := s.backupsDir()
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(s.path), now.Format(backupStamp))
	if err := copyFile(s.path, filepath.Join(bdir, name)); err != nil {
		return fmt.Errorf("backup current book: %w", err)
	}
	s.lastBackup = now
	return s.pruneBackups()
}

// Backups lists backup files oldest first.
func (s *FileStore) Backups() ([]string, error) {
	ents, err := os.ReadDir(s.backupsDir())
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(s.path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(s.backupsDir(), name))
		}
	}
	// the timestamp in the name sorts lexicographically
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) pruneBackups() error {
	list, err := s.Backups()
	if err != nil {
		return err
	}
	for len(list) > BackupKeep {
		if err := os.Remove(list[0]); err != nil {
			return fmt.Errorf("prune backup: %w", err)
		}
		list = list[1:]
	}
	return nil
}

// newestBackupTime reads the stamp of the newest backup name.
func (s *FileStore) newestBackupTime(loc *time.Location) time.Time {
	list, err := s.Backups()
	if err != nil || len(list) == 0 {
		return time.Time{}
	}
	name := strings.TrimSuffix(filepath.Base(list[len(list)-1]), ".bak")
	stamp := strings.TrimPrefix(name, filepath.Base(s.path)+".")
	t, err := time.ParseInLocation(backupStamp, stamp, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// latestBackup returns the newest backup that decodes.
func (s *FileStore) latestBackup() (document, error) {
	list, err := s.Backups()
	if err != nil {
		return document{}, fmt.Errorf("read backups dir: %w", err)
	}
	if len(list) == 0 {
		return document{}, errors.New("no backups found")
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err != nil {
			lastErr = err
			continue
		}
		doc, err := decodeDocument(b)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", filepath.Base(list[i]), err)
			continue
		}
		return doc, nil
	}
	return document{}, lastErr
}

// decodeDocument accepts the versioned document as well as a bare JSON array
// of page strings.
func decodeDocument(b []byte) (document, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return document{}, errors.New("empty document")
	}
	if trimmed[0] == '[' {
		var pages []string
		if err := json.Unmarshal(trimmed, &pages); err != nil {
			return document{}, fmt.Errorf("parse page array: %w", err)
		}
		return document{SchemaVersion: SchemaVersion, Pages: pages}, nil
	}
	schema, err := compiledSchema()
	if err != nil {
		return document{}, fmt.Errorf("compile schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(trimmed))
	if err != nil {
		return document{}, fmt.Errorf("validate: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return document{}, fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return document{}, fmt.Errorf("parse document: %w", err)
	}
	if doc.SchemaVersion > SchemaVersion {
		return document{}, fmt.Errorf("schema_version %d is newer than supported %d", doc.SchemaVersion, SchemaVersion)
	}
	return doc, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
