/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package navigator tracks which spread of the book is shown and runs the
// timed page-turn transition between spreads.
package navigator

import (
	"sync"
	"time"
)

// DefaultTransition matches the page-turn animation of the presentation layer.
const DefaultTransition = 800 * time.Millisecond

// Direction of a page turn.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// State is a snapshot of the navigator.
type State struct {
	Current       int
	Total         int
	Transitioning bool
	Direction     Direction
}

// LeftPage is the page index shown on the left of the current spread.
func (s State) LeftPage() int { return 2 * s.Current }

// RightPage is the page index shown on the right of the current spread.
func (s State) RightPage() int { return 2*s.Current + 1 }

// Timer is the part of *time.Timer the navigator needs.
type Timer interface{ Stop() bool }

// Scheduler runs f once after d. The default is time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallScheduler struct{}

func (wallScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Navigator is a two-state machine: idle, or transitioning in one direction.
// Requests that arrive mid-transition are dropped, not queued.
type Navigator struct {
	mu            sync.Mutex
	maxSpreads    int
	current       int
	total         int
	transitioning bool
	direction     Direction
	duration      time.Duration
	sched         Scheduler
	timer         Timer
	onSettle      func(State)
}

// Option customizes a Navigator.
type Option func(*Navigator)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option { return func(n *Navigator) { n.sched = s } }

// WithDuration sets the transition length.
func WithDuration(d time.Duration) Option { return func(n *Navigator) { n.duration = d } }

// WithSettleListener is called, outside the lock, whenever a transition completes.
func WithSettleListener(fn func(State)) Option { return func(n *Navigator) { n.onSettle = fn } }

// New returns an idle navigator on spread 0 of a book with maxPages pages.
func New(maxPages int, opts ...Option) *Navigator {
	n := &Navigator{
		maxSpreads: max(1, maxPages/2),
		total:      1,
		duration:   DefaultTransition,
		sched:      wallScheduler{},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Duration is the length of one page-turn transition.
func (n *Navigator) Duration() time.Duration { return n.duration }

// State returns a snapshot.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stateLocked()
}

func (n *Navigator) stateLocked() State {
	return State{Current: n.current, Total: n.total, Transitioning: n.transitioning, Direction: n.direction}
}

// CanNext reports whether a next request would start a transition.
func (n *Navigator) CanNext() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.transitioning && n.current < n.maxSpreads-1
}

// CanPrev reports whether a prev request would start a transition.
func (n *Navigator) CanPrev() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.transitioning && n.current > 0
}

// Next requests a forward turn. It reports whether the turn started.
func (n *Navigator) Next() bool { return n.request(Forward) }

// Prev requests a backward turn. It reports whether the turn started.
func (n *Navigator) Prev() bool { return n.request(Backward) }

// HandleKey maps arrow keys onto Prev and Next. Other keys are ignored.
func (n *Navigator) HandleKey(key string) bool {
	switch key {
	case "left", "ArrowLeft":
		return n.Prev()
	case "right", "ArrowRight":
		return n.Next()
	}
	return false
}

func (n *Navigator) request(dir Direction) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.transitioning {
		return false
	}
	switch dir {
	case Forward:
		if n.current >= n.maxSpreads-1 {
			return false
		}
		// always allow stepping into one fresh blank spread
		if n.current+1 >= n.total && n.total < n.maxSpreads {
			n.total++
		}
	case Backward:
		if n.current <= 0 {
			return false
		}
	}
	n.transitioning = true
	n.direction = dir
	n.timer = n.sched.AfterFunc(n.duration, n.complete)
	return true
}

func (n *Navigator) complete() {
	n.mu.Lock()
	if !n.transitioning {
		n.mu.Unlock()
		return
	}
	n.settleLocked()
	st := n.stateLocked()
	fn := n.onSettle
	n.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func (n *Navigator) settleLocked() {
	if n.direction == Forward {
		n.current++
	} else {
		n.current--
	}
	n.current = clamp(n.current, 0, n.total-1)
	n.transitioning = false
	n.timer = nil
}

// Finish completes an in-flight transition immediately. Headless callers use
// it instead of waiting for the timer.
func (n *Navigator) Finish() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.mu.Unlock()
	n.complete()
}

// SetTotal publishes the spread count derived from the book content.
// The current spread is clamped into range. A turn in flight keeps its
// destination reachable.
func (n *Navigator) SetTotal(total int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.total = clamp(total, 1, n.maxSpreads)
	if !n.transitioning {
		n.current = clamp(n.current, 0, n.total-1)
		return
	}
	dest := n.current + 1
	if n.direction == Backward {
		dest = n.current - 1
	}
	if dest >= n.total {
		n.total = min(dest+1, n.maxSpreads)
	}
}

// JumpTo shows spread directly, without a transition, cancelling any turn in
// flight. It returns the spread actually shown after clamping.
func (n *Navigator) JumpTo(spread int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.transitioning = false
	if spread >= n.total && spread < n.maxSpreads {
		n.total = spread + 1
	}
	n.current = clamp(spread, 0, n.total-1)
	return n.current
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
