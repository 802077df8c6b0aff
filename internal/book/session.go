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
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	applog "pixelbook/internal/log"
	"pixelbook/internal/navigator"
	"pixelbook/internal/textlayout"
)

// Session is one open book: the buffer, the navigator showing it, the font
// fit for the current page container and the store it is saved to. Every
// edit runs through the constraint enforcer before it reaches the buffer.
type Session struct {
	mu      sync.Mutex
	buf     *Buffer
	nav     *navigator.Navigator
	refit   *textlayout.Refitter
	store   Store
	saved   uint64
	profile textlayout.Profile
	page    textlayout.Dimensions
	id      string
	log     *slog.Logger
}

type sessionConfig struct {
	navOpts   []navigator.Option
	refitOpts []textlayout.RefitOption
}

// SessionOption customizes Open.
type SessionOption func(*sessionConfig)

// WithNavigatorOptions passes options to the session's navigator.
func WithNavigatorOptions(opts ...navigator.Option) SessionOption {
	return func(c *sessionConfig) { c.navOpts = append(c.navOpts, opts...) }
}

// WithRefitOptions passes options to the session's refitter.
func WithRefitOptions(opts ...textlayout.RefitOption) SessionOption {
	return func(c *sessionConfig) { c.refitOpts = append(c.refitOpts, opts...) }
}

// Open loads the book from store, falling back to an empty book when nothing
// is saved or the saved data is unusable. A nil store keeps the book in memory.
func Open(ctx context.Context, mode textlayout.Mode, store Store, opts ...SessionOption) *Session {
	var cfg sessionConfig
	for _, o := range opts {
		o(&cfg)
	}
	profile := textlayout.ProfileFor(mode)
	s := &Session{
		buf:     NewBuffer(profile.PageCharLimit),
		nav:     navigator.New(MaxPages, cfg.navOpts...),
		refit:   textlayout.NewRefitter(profile, cfg.refitOpts...),
		store:   store,
		profile: profile,
		log:     applog.WithComponent("session"),
	}
	if store != nil {
		l := applog.WithOperation(s.log, "load")
		pages, err := store.Load(ctx)
		if b, ok := store.(interface{ BookID() string }); ok {
			s.id = b.BookID()
		}
		ctx = s.logContextLocked(ctx)
		switch {
		case err == nil:
			s.buf.Load(pages)
			l.DebugContext(ctx, "book loaded", slog.Int("non_empty", s.buf.NonEmptyCount()))
		case errors.Is(err, ErrNotFound):
			l.InfoContext(ctx, "no saved book, starting empty")
		default:
			l.WarnContext(ctx, "saved book unusable, starting empty", slog.Any("err", err))
		}
	}
	s.saved = s.buf.Generation()
	s.nav.SetTotal(s.buf.SpreadCount())
	return s
}

// Edit applies newText to page through the enforcer. cursor is the rune
// offset right after the edit; the returned Edit carries the corrected text
// and the relocated cursor.
func (s *Session) Edit(ctx context.Context, page int, newText string, cursor int) (textlayout.Edit, error) {
	s.mu.Lock()
	old, err := s.buf.Page(page)
	if err != nil {
		s.mu.Unlock()
		return textlayout.Edit{}, err
	}
	e := textlayout.EnforceEdit(old, newText, cursor, s.refit.Caps())
	err = s.commitLocked(ctx, page, e.Text)
	s.mu.Unlock()
	s.refit.ContentChanged(utf8.RuneCountInString(e.Text))
	return e, err
}

// SetPage replaces page with text as if it had been pasted into a blank page.
func (s *Session) SetPage(ctx context.Context, page int, text string) (string, error) {
	s.mu.Lock()
	if page < 0 || page >= MaxPages {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %d", ErrPageIndex, page)
	}
	out := textlayout.Enforce("", text, s.refit.Caps())
	err := s.commitLocked(ctx, page, out)
	s.mu.Unlock()
	s.refit.ContentChanged(utf8.RuneCountInString(out))
	return out, err
}

// ClearPage empties page.
func (s *Session) ClearPage(ctx context.Context, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, page, "")
}

func (s *Session) commitLocked(ctx context.Context, page int, text string) error {
	if err := s.buf.WritePage(page, text); err != nil {
		return err
	}
	s.nav.SetTotal(s.buf.SpreadCount())
	return s.persistLocked(ctx)
}

// Reset empties every page and shows the first spread.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	s.nav.SetTotal(s.buf.SpreadCount())
	s.nav.JumpTo(0)
	return s.persistLocked(ctx)
}

// FirstBlankPage is where appended text would start, or -1 for a full book.
func (s *Session) FirstBlankPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.FirstBlank()
}

// AllowKey is the input gate for a keystroke on page.
func (s *Session) AllowKey(page int, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.buf.Page(page)
	if err != nil {
		return false
	}
	return textlayout.AllowKey(text, textlayout.ClassifyKey(key), s.refit.Caps())
}

// WriteExternalText flows text into the book after the existing content and
// shows the spread holding the first new page.
func (s *Session) WriteExternalText(ctx context.Context, text string) (FlowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.afterFlowLocked(ctx, "write_external", s.buf.WriteExternalText(text))
}

// ReplaceWithExternalText clears the book and flows text from the first page.
func (s *Session) ReplaceWithExternalText(ctx context.Context, text string) (FlowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.afterFlowLocked(ctx, "replace_external", s.buf.ReplaceWithExternalText(text))
}

func (s *Session) afterFlowLocked(ctx context.Context, op string, r FlowResult) (FlowResult, error) {
	ctx = s.logContextLocked(ctx)
	l := applog.WithOperation(s.log, op)
	s.nav.SetTotal(s.buf.SpreadCount())
	if r.PagesWritten > 0 {
		s.nav.JumpTo(SpreadOf(r.FirstPage))
	}
	if r.Truncated() {
		l.WarnContext(ctx, "book full, text truncated", slog.Int("dropped", r.Dropped), slog.Int("written", r.Written))
	} else {
		l.InfoContext(ctx, "external text written", slog.Int("pages", r.PagesWritten), slog.Int("first_page", r.FirstPage))
	}
	return r, s.persistLocked(ctx)
}

// persistLocked saves a snapshot of the buffer when its content changed since
// the last successful save.
func (s *Session) persistLocked(ctx context.Context) error {
	gen := s.buf.Generation()
	if s.store == nil || gen == s.saved {
		return nil
	}
	if err := s.store.Save(ctx, s.buf.Pages()); err != nil {
		applog.WithOperation(s.log, "save").ErrorContext(s.logContextLocked(ctx), "save failed", slog.Any("err", err))
		return fmt.Errorf("save book: %w", err)
	}
	s.saved = gen
	return nil
}

// Flush retries a save that failed earlier.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// Close cancels pending re-fits and flushes unsaved content.
func (s *Session) Close(ctx context.Context) error {
	s.refit.Stop()
	return s.Flush(ctx)
}

// SetMode switches the layout profile. Caps are re-published at once; the
// font size follows when the scaled container has been re-measured.
func (s *Session) SetMode(mode textlayout.Mode) {
	s.mu.Lock()
	p := textlayout.ProfileFor(mode)
	s.profile = p
	s.buf.SetPageCharLimit(p.PageCharLimit)
	page := s.page
	s.mu.Unlock()
	s.refit.SetProfile(p)
	if page.Ready() {
		s.refit.Resize(page.Scale(p.BookScale))
	}
}

// Resize reports the unscaled size of one page container. The active
// profile's book scale is applied before fitting.
func (s *Session) Resize(page textlayout.Dimensions) {
	s.mu.Lock()
	s.page = page
	scale := s.profile.BookScale
	s.mu.Unlock()
	s.refit.Resize(page.Scale(scale))
}

// LogContext tags ctx with the book id and the active mode so every record
// logged under it names the book it belongs to.
func (s *Session) LogContext(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logContextLocked(ctx)
}

func (s *Session) logContextLocked(ctx context.Context) context.Context {
	attrs := []slog.Attr{slog.String("mode", string(s.profile.Mode))}
	if s.id != "" {
		attrs = append(attrs, slog.String("book", s.id))
	}
	return applog.ContextWith(ctx, attrs...)
}

// Refitter exposes the fit trigger, mostly so hosts can Flush a pending resize.
func (s *Session) Refitter() *textlayout.Refitter { return s.refit }

// Navigator returns the spread navigator.
func (s *Session) Navigator() *navigator.Navigator { return s.nav }

// Mode returns the active layout mode.
func (s *Session) Mode() textlayout.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Mode
}

// Profile returns the active layout profile.
func (s *Session) Profile() textlayout.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Caps returns the caps currently enforced.
func (s *Session) Caps() textlayout.Caps { return s.refit.Caps() }

// Fit returns the current font fit.
func (s *Session) Fit() textlayout.FitResult { return s.refit.Current() }

// Pages returns a snapshot of all pages.
func (s *Session) Pages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Pages()
}

// Page returns one page.
func (s *Session) Page(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Page(i)
}

// NonEmptyCount counts pages with content.
func (s *Session) NonEmptyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.NonEmptyCount()
}
