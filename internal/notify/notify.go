/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notify sends desktop notifications for events that happen away
// from the user's eyes: a finished or aborted export, or text that did not
// fit in the book.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	applog "pixelbook/internal/log"
)

// AppName is the title of every notification.
const AppName = "Pixelbook"

var (
	mu       sync.Mutex
	notifier = beeep.Notify
	disabled bool
)

// SetNotifier replaces the function used to deliver notifications.
func SetNotifier(fn func(title, message string, icon any) error) {
	mu.Lock()
	defer mu.Unlock()
	notifier = fn
}

// ResetNotifier restores the desktop notifier.
func ResetNotifier() {
	mu.Lock()
	defer mu.Unlock()
	notifier = beeep.Notify
}

// SetDisabled turns delivery off (or back on). Disabled sends are dropped
// without error.
func SetDisabled(v bool) {
	mu.Lock()
	defer mu.Unlock()
	disabled = v
}

// Send delivers a notification.
func Send(title, message string) error {
	mu.Lock()
	fn, off := notifier, disabled
	mu.Unlock()
	l := applog.WithOperation(applog.WithComponent("notify"), "send")
	if off {
		l.Debug("notifications disabled", slog.String("title", title))
		return nil
	}
	err := fn(title, message, "")
	if err != nil {
		l.Warn("notification failed", slog.String("title", title), slog.Any("err", err))
	}
	return err
}

// ExportFinished reports a completed export.
func ExportFinished(spreads, failed int, location string) error {
	msg := fmt.Sprintf("%d spreads exported to %s", spreads, location)
	if failed > 0 {
		msg = fmt.Sprintf("%d spreads exported to %s, %d failed", spreads-failed, location, failed)
	}
	return Send(AppName, msg)
}

// NothingToExport tells the user the book is empty.
func NothingToExport() error {
	return Send(AppName, "Nothing to export: the book has no text yet")
}

// ExportAborted reports an export that stopped early.
func ExportAborted(err error) error {
	return Send(AppName, fmt.Sprintf("Export aborted: %v", err))
}

// Truncated tells the user that text did not fit in the book.
func Truncated(dropped int) error {
	return Send(AppName, fmt.Sprintf("The book is full: %d characters were not written", dropped))
}
