/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pixelbook/internal/book"
	applog "pixelbook/internal/log"
	"pixelbook/internal/navigator"
)

// Navigator is the part of the spread navigator an export drives: it shows
// each spread in turn and restores the original one afterwards.
type Navigator interface {
	State() navigator.State
	JumpTo(spread int) int
}

// Report describes a finished export.
type Report struct {
	Format   string
	Spreads  []int
	Files    []string
	Failed   []*CaptureError
	Location string
	Elapsed  time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Builder replays a book spread by spread through a Rasterizer into a Sink.
// One Builder runs one export at a time.
type Builder struct {
	raster    Rasterizer
	settings  Settings
	sleep     Sleeper
	now       func() time.Time
	log       *slog.Logger
	exporting atomic.Bool
}

// Option customizes a Builder.
type Option func(*Builder)

// WithSettings replaces DefaultSettings.
func WithSettings(s Settings) Option { return func(b *Builder) { b.settings = s } }

// WithSleeper replaces the wall-clock waits, mostly for tests.
func WithSleeper(s Sleeper) Option { return func(b *Builder) { b.sleep = s } }

// NewBuilder returns a builder capturing with r.
func NewBuilder(r Rasterizer, opts ...Option) *Builder {
	b := &Builder{
		raster:   r,
		settings: DefaultSettings(),
		sleep:    sleepCtx,
		now:      time.Now,
		log:      applog.WithComponent("export"),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Exporting reports whether an export is running.
func (b *Builder) Exporting() bool { return b.exporting.Load() }

// Export captures every spread of pages that has content and hands one file
// per spread to sink, which is closed at the end. A spread that fails is
// logged, recorded in the report and skipped. The navigator is moved to each
// spread while it is captured and always put back where it was.
func (b *Builder) Export(ctx context.Context, pages []string, nav Navigator, sink Sink) (rep Report, err error) {
	if !b.exporting.CompareAndSwap(false, true) {
		return Report{}, ErrExportInProgress
	}
	defer b.exporting.Store(false)

	l := applog.WithOperation(b.log, "export")
	start := b.now()
	if b.raster == nil {
		_ = sink.Close()
		err := &ExportAbortedError{Err: errNoRasterizer}
		l.ErrorContext(ctx, "export aborted", slog.Any("err", err))
		return rep, err
	}
	rep.Format = b.raster.Ext()
	rep.Location = sink.Location()

	buf := book.NewBuffer(0)
	buf.Load(pages)
	rep.Spreads = buf.SpreadsWithContent()
	if len(rep.Spreads) == 0 {
		l.InfoContext(ctx, "nothing to export")
		_ = sink.Close()
		return rep, ErrNothingToExport
	}
	snapshot := buf.Pages()

	original := nav.State().Current
	closed := false
	defer func() {
		nav.JumpTo(original)
		if !closed {
			_ = sink.Close()
		}
		if r := recover(); r != nil {
			err = &ExportAbortedError{Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			l.ErrorContext(ctx, "export aborted", slog.Any("err", err))
		}
	}()

	s := b.settings
	copts := CaptureOptions{Scale: s.Scale, Background: s.Background}
	for i, k := range rep.Spreads {
		sctx := applog.ContextWith(ctx, slog.Int("spread", k))
		nav.JumpTo(k)
		if err := b.sleep(sctx, s.RenderDelay); err != nil {
			return rep, &ExportAbortedError{Err: err}
		}
		name, cerr := b.captureSpread(sctx, k, snapshot, copts, sink)
		if cerr != nil {
			if ctx.Err() != nil {
				return rep, &ExportAbortedError{Err: ctx.Err()}
			}
			ce := &CaptureError{Spread: k, Err: cerr}
			rep.Failed = append(rep.Failed, ce)
			applog.WithOperation(l, "spread_capture").WarnContext(sctx, "spread skipped", slog.Any("err", cerr))
			continue
		}
		rep.Files = append(rep.Files, name)
		l.DebugContext(sctx, "spread exported", slog.String("file", name))
		if i < len(rep.Spreads)-1 {
			if err := b.sleep(ctx, s.DownloadDelay); err != nil {
				return rep, &ExportAbortedError{Err: err}
			}
		}
	}
	closed = true
	if err := sink.Close(); err != nil {
		return rep, &ExportAbortedError{Err: err}
	}
	rep.Elapsed = b.now().Sub(start)
	l.InfoContext(ctx, "export finished",
		slog.Int("files", len(rep.Files)),
		slog.Int("failed", len(rep.Failed)),
		slog.String("location", rep.Location))
	return rep, nil
}

// captureSpread renders, captures and stores spread k. A panic in the
// rasterizer is returned as that spread's error.
func (b *Builder) captureSpread(ctx context.Context, k int, pages []string, opts CaptureOptions, sink Sink) (name string, err error) {
	defer func() {
		if p := recover(); p != nil {
			name, err = "", fmt.Errorf("panic: %v", p)
		}
	}()
	s := b.settings
	r, err := BuildReplica(k, pages, s.PageSize, s.Style)
	if err != nil {
		return "", fmt.Errorf("replica: %w", err)
	}
	data, err := b.raster.Capture(ctx, r, opts)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("rasterizer returned no data")
	}
	name = FileName(s.FilePrefix, k, b.raster.Ext())
	if err := sink.Put(name, data); err != nil {
		return "", err
	}
	return name, nil
}
