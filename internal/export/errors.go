/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToExport means the book has no page with content. It is a
	// notice for the user, not a failure.
	ErrNothingToExport = errors.New("export: nothing to export")
	// ErrExportInProgress is returned when an export is requested while another
	// one is running.
	ErrExportInProgress = errors.New("export: already in progress")

	errNoRasterizer = errors.New("no rasterizer available")
)

// CaptureError records a spread that could not be captured or written. The
// export skips it and continues.
type CaptureError struct {
	Spread int
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("export: spread %d (pages %d-%d): %v", e.Spread, 2*e.Spread+1, 2*e.Spread+2, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ExportAbortedError is a failure outside the per-spread loop. The navigator
// has been restored when it is returned.
type ExportAbortedError struct {
	Err error
}

func (e *ExportAbortedError) Error() string { return "export aborted: " + e.Err.Error() }

func (e *ExportAbortedError) Unwrap() error { return e.Err }
