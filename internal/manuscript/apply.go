/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package manuscript

import (
	"context"
	"log/slog"
	"strings"

	"pixelbook/internal/book"
	applog "pixelbook/internal/log"
)

// Result summarizes an import.
type Result struct {
	// FirstPage is the index the first explicit page went to, -1 when none did.
	FirstPage int
	// PagesSet counts explicit pages written.
	PagesSet int
	// PagesSkipped counts explicit pages that did not fit in the book.
	PagesSkipped int
	// Flow is the outcome of flowing the free text.
	Flow book.FlowResult
}

// Truncated reports whether any content was left out.
func (r Result) Truncated() bool { return r.PagesSkipped > 0 || r.Flow.Truncated() }

// Apply writes m into s. A mode named by the manuscript is activated first.
// With replace the book is emptied before anything is written. Explicit pages
// go to consecutive indexes from the first blank page; free text is then
// flowed after them.
func (m *Manuscript) Apply(ctx context.Context, s *book.Session, replace bool) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("manuscript"), "apply")
	res := Result{FirstPage: -1, Flow: book.FlowResult{FirstPage: -1}}
	if m.Mode != "" && m.Mode != s.Mode() {
		s.SetMode(m.Mode)
	}
	if replace {
		if err := s.Reset(ctx); err != nil {
			return res, err
		}
	}
	if len(m.Pages) > 0 {
		start := s.FirstBlankPage()
		for i, text := range m.Pages {
			idx := start + i
			if start < 0 || idx >= book.MaxPages {
				res.PagesSkipped = len(m.Pages) - i
				break
			}
			if _, err := s.SetPage(ctx, idx, text); err != nil {
				return res, err
			}
			if res.FirstPage < 0 {
				res.FirstPage = idx
			}
			res.PagesSet++
		}
		if res.FirstPage >= 0 {
			s.Navigator().JumpTo(book.SpreadOf(res.FirstPage))
		}
	}
	if strings.TrimSpace(m.FreeText) != "" {
		fr, err := s.WriteExternalText(ctx, m.FreeText)
		res.Flow = fr
		if err != nil {
			return res, err
		}
	}
	if res.PagesSkipped > 0 {
		l.WarnContext(ctx, "book full, pages skipped", slog.Int("skipped", res.PagesSkipped))
	}
	l.InfoContext(ctx, "manuscript applied",
		slog.String("title", m.Title),
		slog.Int("pages", res.PagesSet),
		slog.Int("flowed_pages", res.Flow.PagesWritten))
	return res, nil
}
