/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"
	"sync"
	"time"
)

// Re-fit trigger tuning.
const (
	ResizeDebounce        = 10 * time.Millisecond
	ContentDeltaThreshold = 5   // runes
	FontDeltaThreshold    = 0.5 // px
)

// Timer is the part of *time.Timer the refitter needs.
type Timer interface{ Stop() bool }

// Scheduler runs f once after d. The default is time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Refitter is the single place a page's font fit is recomputed. Its three
// inputs are resize (debounced), profile change (immediate) and content
// length change (thresholded). Listeners hear about a new result only when the
// font size moved by more than FontDeltaThreshold or the caps changed.
type Refitter struct {
	mu       sync.Mutex
	fitter   *Fitter
	profile  Profile
	dims     Dimensions
	current  FitResult
	lastLen  int
	pending  Timer
	sched    Scheduler
	listener func(FitResult, Caps)
}

// RefitOption customizes a Refitter.
type RefitOption func(*Refitter)

// WithScheduler replaces the wall-clock scheduler used for resize debouncing.
func WithScheduler(s Scheduler) RefitOption { return func(r *Refitter) { r.sched = s } }

// WithListener registers fn to receive every published result.
func WithListener(fn func(FitResult, Caps)) RefitOption {
	return func(r *Refitter) { r.listener = fn }
}

// NewRefitter starts with the profile's caps and the minimum font size.
func NewRefitter(p Profile, opts ...RefitOption) *Refitter {
	f := NewFitter(p)
	r := &Refitter{fitter: f, profile: p, current: f.Last(), sched: wallScheduler{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resize records new container dimensions; the fit runs once the burst of
// resizes has been quiet for ResizeDebounce.
func (r *Refitter) Resize(d Dimensions) {
	r.mu.Lock()
	r.dims = d
	if r.pending != nil {
		r.pending.Stop()
	}
	r.pending = r.sched.AfterFunc(ResizeDebounce, func() { r.refit(false) })
	r.mu.Unlock()
}

// SetProfile switches the active profile and re-fits immediately. The caps are
// published even when the dimensions, and so the font size, did not change.
func (r *Refitter) SetProfile(p Profile) {
	r.mu.Lock()
	r.profile = p
	r.mu.Unlock()
	r.refit(true)
}

// ContentChanged re-fits when the page content length moved by more than
// ContentDeltaThreshold runes since the last content-driven fit.
func (r *Refitter) ContentChanged(length int) {
	r.mu.Lock()
	delta := length - r.lastLen
	if delta < 0 {
		delta = -delta
	}
	if delta <= ContentDeltaThreshold {
		r.mu.Unlock()
		return
	}
	r.lastLen = length
	r.mu.Unlock()
	r.refit(false)
}

// Flush runs a pending debounced fit now.
func (r *Refitter) Flush() {
	r.mu.Lock()
	p := r.pending
	r.pending = nil
	r.mu.Unlock()
	if p != nil && p.Stop() {
		r.refit(false)
	}
}

// Stop cancels any pending debounced fit.
func (r *Refitter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

// Current returns the last published fit.
func (r *Refitter) Current() FitResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Profile returns the active profile.
func (r *Refitter) Profile() Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile
}

// Dimensions returns the last recorded container size.
func (r *Refitter) Dimensions() Dimensions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dims
}

// Caps returns the caps in force: the fitted line caps plus the profile's page limit.
func (r *Refitter) Caps() Caps {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Caps(r.profile)
}

func (r *Refitter) refit(force bool) {
	r.mu.Lock()
	res := r.fitter.Fit(r.dims, r.profile)
	capsChanged := res.MaxLines != r.current.MaxLines || res.MaxCharsPerLine != r.current.MaxCharsPerLine
	fontMoved := math.Abs(res.FontSizePx-r.current.FontSizePx) > FontDeltaThreshold
	if !fontMoved {
		res.FontSizePx = r.current.FontSizePx
		res.LineHeightPx = r.current.LineHeightPx
	}
	publish := force || capsChanged || fontMoved
	r.current = res
	caps := res.Caps(r.profile)
	fn := r.listener
	r.mu.Unlock()
	if publish && fn != nil {
		fn(res, caps)
	}
}
