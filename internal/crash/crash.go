/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an autosave of the
// book's pages before the process exits.
package crash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "pixelbook/internal/log"
	"pixelbook/internal/telemetry"
	"pixelbook/internal/version"
)

// exitFn is swapped by tests.
var exitFn = os.Exit

// snapshotTimeout bounds the wait for the page snapshot. A panic inside a
// locked section can leave the book lock held.
var snapshotTimeout = 2 * time.Second

const stampLayout = "20060102-150405"

// Target says where crash output goes and how to read the current pages.
type Target struct {
	// Dir receives the report and the autosave. The system temp dir is
	// used when empty.
	Dir string
	// Pages returns the current page buffer. Nil skips the autosave.
	Pages func() []string
}

// Autosave is the JSON document written next to a crash report.
type Autosave struct {
	SavedAt time.Time `json:"saved_at"`
	Version string    `json:"version"`
	Pages   []string  `json:"pages"`
}

// Recover captures a panic, logs it with its stack, writes a crash report
// and an autosave of the pages, then exits with code 2.
//
// Usage: defer crash.Recover(target)
func Recover(t *Target) {
	if r := recover(); r != nil {
		handle(t, r, debug.Stack())
	}
}

func handle(t *Target, panicVal any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", panicVal), slog.String("stack", string(stack)))

	now := time.Now()
	reportPath, err := writeReport(t, now, panicVal, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if t != nil && t.Pages != nil {
		if path, err := writeAutosave(t, now); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else {
			l.Info("autosave written", slog.String("path", path))
			_, _ = fmt.Fprintf(os.Stderr, "Your pages were saved to: %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func dirFor(t *Target) string {
	if t == nil || t.Dir == "" {
		return os.TempDir()
	}
	_ = os.MkdirAll(t.Dir, 0o755)
	return t.Dir
}

func writeReport(t *Target, now time.Time, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(dirFor(t), fmt.Sprintf("crash-%s.log", now.Format(stampLayout)))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Pixelbook Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := writeFile(path, buf.Bytes()); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}

func writeAutosave(t *Target, now time.Time) (string, error) {
	pages, err := snapshot(t.Pages)
	if err != nil {
		return "", err
	}
	doc := Autosave{SavedAt: now.UTC(), Version: version.String(), Pages: pages}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dirFor(t), fmt.Sprintf("autosave-%s.json", now.Format(stampLayout)))
	return path, writeFile(path, b)
}

func snapshot(fn func() []string) (pages []string, err error) {
	done := make(chan []string, 1)
	fail := make(chan any, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				fail <- r
			}
		}()
		done <- fn()
	}()
	select {
	case p := <-done:
		return p, nil
	case r := <-fail:
		return nil, fmt.Errorf("read pages: %v", r)
	case <-time.After(snapshotTimeout):
		return nil, fmt.Errorf("read pages: timed out after %s", snapshotTimeout)
	}
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	_ = f.Sync()
	return f.Close()
}
