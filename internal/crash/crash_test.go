/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func stubExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func findFile(t *testing.T, dir, prefix, suffix string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), suffix) {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no %s*%s file in %s", prefix, suffix, dir)
	return ""
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	silenceStderr(t)
	code := stubExit(t)
	dir := filepath.Join(t.TempDir(), "crash")
	pages := []string{"hello", "", "world"}

	func() {
		defer Recover(&Target{Dir: dir, Pages: func() []string { return pages }})
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	b, err := os.ReadFile(findFile(t, dir, "crash-", ".log"))
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, "Pixelbook Crash Report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}

	b, err = os.ReadFile(findFile(t, dir, "autosave-", ".json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc Autosave
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("bad autosave json: %v", err)
	}
	if len(doc.Pages) != 3 || doc.Pages[0] != "hello" || doc.Pages[2] != "world" {
		t.Fatalf("unexpected autosave pages %q", doc.Pages)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	code := stubExit(t)
	dir := t.TempDir()
	func() {
		defer Recover(&Target{Dir: dir})
	}()
	if *code != -1 {
		t.Fatalf("exit should not be called")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files, got %d", len(entries))
	}
}

func TestWriteReportInTempDir(t *testing.T) {
	path, err := writeReport(nil, time.Now(), "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected report under temp dir, got %s", path)
	}
}

func TestSnapshotTimesOutOnHeldLock(t *testing.T) {
	old := snapshotTimeout
	snapshotTimeout = 20 * time.Millisecond
	t.Cleanup(func() { snapshotTimeout = old })

	var mu sync.Mutex
	mu.Lock()
	defer mu.Unlock()
	_, err := snapshot(func() []string {
		mu.Lock()
		defer mu.Unlock()
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestSnapshotRecoversPanickingReader(t *testing.T) {
	_, err := snapshot(func() []string { panic("again") })
	if err == nil || !strings.Contains(err.Error(), "again") {
		t.Fatalf("expected wrapped panic, got %v", err)
	}
}
