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
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	applog "pixelbook/internal/log"
	"pixelbook/internal/navigator"
	"pixelbook/internal/textlayout"
)

type stubTimer struct{ live bool }

func (t *stubTimer) Stop() bool {
	was := t.live
	t.live = false
	return was
}

// refitClock and navClock never fire on their own; tests drive them through
// Refitter.Flush and Navigator.Finish.
type refitClock struct{}

func (refitClock) AfterFunc(time.Duration, func()) textlayout.Timer { return &stubTimer{live: true} }

type navClock struct{}

func (navClock) AfterFunc(time.Duration, func()) navigator.Timer { return &stubTimer{live: true} }

type brokenStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (b *brokenStore) Load(context.Context) ([]string, error) { return nil, b.loadErr }

func (b *brokenStore) Save(context.Context, []string) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	return nil
}

func openTest(t *testing.T, mode textlayout.Mode, store Store) *Session {
	t.Helper()
	s := Open(context.Background(), mode, store,
		WithNavigatorOptions(navigator.WithScheduler(navClock{})),
		WithRefitOptions(textlayout.WithScheduler(refitClock{})))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestOpenStartsEmptyWithoutSavedBook(t *testing.T) {
	store := NewMemoryStore(nil)
	s := openTest(t, textlayout.ModeDesktop, store)
	if s.NonEmptyCount() != 0 || len(s.Pages()) != MaxPages {
		t.Fatalf("expected an empty book of %d pages", MaxPages)
	}
	if st := s.Navigator().State(); st.Total != 1 || st.Current != 0 {
		t.Fatalf("unexpected navigator state %+v", st)
	}
	if store.Saves() != 0 {
		t.Fatalf("opening must not save")
	}
}

func TestOpenFallsBackOnCorruptData(t *testing.T) {
	for _, err := range []error{ErrPersistenceCorrupt, errors.New("disk on fire")} {
		s := openTest(t, textlayout.ModeDesktop, &brokenStore{loadErr: err})
		if s.NonEmptyCount() != 0 {
			t.Fatalf("load error %v should yield an empty book", err)
		}
	}
}

func TestOpenLoadsSavedPages(t *testing.T) {
	store := NewMemoryStore([]string{"x", "y"})
	s := openTest(t, textlayout.ModeDesktop, store)
	if p, _ := s.Page(1); p != "y" {
		t.Fatalf("page 1 = %q", p)
	}
	if got := s.Navigator().State().Total; got != 2 {
		t.Fatalf("total spreads = %d, want 2", got)
	}
	if err := s.Flush(context.Background()); err != nil || store.Saves() != 0 {
		t.Fatalf("unchanged book must not be re-saved (err=%v, saves=%d)", err, store.Saves())
	}
}

func TestEditIsEnforcedAndSavedOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	s := openTest(t, textlayout.ModeDesktop, store)
	long := strings.Repeat("a", 40)
	e, err := s.Edit(ctx, 0, long, 40)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !textlayout.Satisfies(e.Text, s.Caps()) {
		t.Fatalf("edited text violates caps: %q", e.Text)
	}
	if p, _ := s.Page(0); p != e.Text {
		t.Fatalf("buffer holds %q, edit returned %q", p, e.Text)
	}
	if store.Saves() != 1 {
		t.Fatalf("expected one save, got %d", store.Saves())
	}
	if _, err := s.Edit(ctx, 0, e.Text, e.Cursor); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if store.Saves() != 1 {
		t.Fatalf("identical edit must not save again, got %d saves", store.Saves())
	}
	if _, err := s.Edit(ctx, MaxPages, "x", 1); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("out of range edit err = %v", err)
	}
}

func TestEditGrowsSpreadCount(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, textlayout.ModeDesktop, nil)
	for i := 0; i < 3; i++ {
		if _, err := s.SetPage(ctx, i, "page"); err != nil {
			t.Fatalf("SetPage: %v", err)
		}
	}
	if got := s.Navigator().State().Total; got != 3 {
		t.Fatalf("three pages should give 3 spreads, got %d", got)
	}
	if err := s.ClearPage(ctx, 2); err != nil {
		t.Fatalf("ClearPage: %v", err)
	}
	if got := s.Navigator().State().Total; got != 2 {
		t.Fatalf("clearing should shrink the spread count, got %d", got)
	}
}

func TestSaveFailureIsRetriedOnFlush(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{loadErr: ErrNotFound, saveErr: errors.New("read-only")}
	s := openTest(t, textlayout.ModeDesktop, store)
	if _, err := s.SetPage(ctx, 0, "hello"); err == nil {
		t.Fatalf("expected the save error to surface")
	}
	if p, _ := s.Page(0); p != "hello" {
		t.Fatalf("edit should stay in memory after a failed save, got %q", p)
	}
	store.saveErr = nil
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("expected the retry to save once, got %d", store.saves)
	}
}

func TestWriteExternalTextJumpsToFirstNewPage(t *testing.T) {
	ctx := context.Background()
	seed := []string{"a", "b", "c", "d", "e", "f"}
	s := openTest(t, textlayout.ModeDesktop, NewMemoryStore(seed))
	r, err := s.WriteExternalText(ctx, strings.Repeat("A", 700))
	if err != nil {
		t.Fatalf("WriteExternalText: %v", err)
	}
	if r.FirstPage != 6 || r.PagesWritten != 3 {
		t.Fatalf("unexpected flow result %+v", r)
	}
	st := s.Navigator().State()
	if st.Current != 3 {
		t.Fatalf("expected to show spread 3, got %d", st.Current)
	}
	if st.Total != SpreadCountFor(9) {
		t.Fatalf("total = %d, want %d", st.Total, SpreadCountFor(9))
	}
}

func TestReplaceWithExternalTextStartsOver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore([]string{"a", "b", "c", "d", "e"})
	s := openTest(t, textlayout.ModeMobile, store)
	r, err := s.ReplaceWithExternalText(ctx, strings.Repeat("m", 300))
	if err != nil {
		t.Fatalf("ReplaceWithExternalText: %v", err)
	}
	if r.FirstPage != 0 || r.PagesWritten != 2 {
		t.Fatalf("unexpected flow result %+v", r)
	}
	pages := s.Pages()
	if len(pages[0]) != 206 || len(pages[1]) != 94 || pages[2] != "" {
		t.Fatalf("mobile page limit not applied: %d/%d/%q", len(pages[0]), len(pages[1]), pages[2])
	}
	if s.Navigator().State().Current != 0 {
		t.Fatalf("replace should show the first spread")
	}
	if store.Saves() != 1 {
		t.Fatalf("expected one save, got %d", store.Saves())
	}
}

func TestSetModeRepublishesCaps(t *testing.T) {
	s := openTest(t, textlayout.ModeDesktop, nil)
	if c := s.Caps(); c.MaxCharsPerLine != 27 || c.PageCharLimit != 256 {
		t.Fatalf("desktop caps wrong: %+v", c)
	}
	s.SetMode(textlayout.ModeMobile)
	if c := s.Caps(); c.MaxCharsPerLine != 19 || c.PageCharLimit != 206 {
		t.Fatalf("mobile caps not published: %+v", c)
	}
	if s.Mode() != textlayout.ModeMobile {
		t.Fatalf("mode = %s", s.Mode())
	}
}

func TestResizeAppliesBookScale(t *testing.T) {
	s := openTest(t, textlayout.ModeEditor, nil)
	s.Resize(textlayout.Dimensions{Width: 540, Height: 360})
	s.Refitter().Flush()
	// 0.8 * 360 / 12 lines * 0.85 fill
	if got := s.Fit().FontSizePx; math.Abs(got-20.4) > 1e-9 {
		t.Fatalf("font size = %v, want 20.4", got)
	}
	if d := s.Refitter().Dimensions(); d.Width != 432 || d.Height != 288 {
		t.Fatalf("scaled dimensions = %+v", d)
	}
}

func TestAllowKeyAtPageLimit(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, textlayout.ModeDesktop, nil)
	if !s.AllowKey(0, "a") {
		t.Fatalf("empty page should accept input")
	}
	full := strings.TrimSuffix(strings.Repeat(strings.Repeat("z", 27)+"\n", 12), "\n")
	if _, err := s.SetPage(ctx, 0, full); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if s.AllowKey(0, "a") {
		t.Fatalf("full page should reject printable input")
	}
	if !s.AllowKey(0, "Backspace") {
		t.Fatalf("editing keys must stay allowed")
	}
}

func TestSetPageEnforcesAndClearPageEmpties(t *testing.T) {
	s := openTest(t, textlayout.ModeMobile, nil)
	ctx := context.Background()
	out, err := s.SetPage(ctx, 0, strings.Repeat("w", 250))
	if err != nil {
		t.Fatal(err)
	}
	if !textlayout.Satisfies(out, s.Caps()) {
		t.Fatalf("set text breaks the mobile caps: %d runes", len([]rune(out)))
	}
	if err := s.ClearPage(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Page(0); got != "" {
		t.Fatalf("page after clear = %q", got)
	}
	if _, err := s.SetPage(ctx, MaxPages, "x"); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("out of range set: %v", err)
	}
	if err := s.ClearPage(ctx, -1); !errors.Is(err, ErrPageIndex) {
		t.Fatalf("out of range clear: %v", err)
	}
}

type namedStore struct{ *MemoryStore }

func (namedStore) BookID() string { return "b-42" }

func TestSessionLogsCarryBookAndMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pxb.json")
	applog.Init(applog.Options{Level: "info", Format: "json", File: path, Quiet: true})
	t.Cleanup(func() { applog.Init(applog.FromEnv()) })

	s := openTest(t, textlayout.ModeMobile, namedStore{NewMemoryStore(nil)})
	ctx := context.Background()
	if _, err := s.WriteExternalText(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["op"] != "write_external" || rec["book"] != "b-42" || rec["mode"] != "mobile" {
		t.Fatalf("record lacks book context: %v", rec)
	}

	tagged := s.LogContext(ctx)
	s.SetMode(textlayout.ModeDesktop)
	applog.L().InfoContext(s.LogContext(tagged), "retagged")
	b, _ = os.ReadFile(path)
	lines = strings.Split(strings.TrimSpace(string(b)), "\n")
	rec = nil
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["mode"] != "desktop" {
		t.Fatalf("mode should follow the session, got %v", rec["mode"])
	}
}
