/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	rw "github.com/mattn/go-runewidth"

	"pixelbook/internal/book"
	"pixelbook/internal/navigator"
)

const helpMarkdown = `# Pixelbook

Two pages of the book are shown at a time. Text wraps and stops at the page
edge; what does not fit is pushed to the next line or cut.

- **PgDn / Alt+Right**: next spread
- **PgUp / Alt+Left**: previous spread
- **Tab**: switch between the left and the right page
- **Ctrl+V**: write the clipboard into the book after the last written page
- **Ctrl+R**: replace the whole book with the clipboard
- **Ctrl+D**: clear the focused page
- **Ctrl+T**: toggle the scaled editor mode
- **Ctrl+E**: export every spread with text
- **Ctrl+S**: save now
- **Ctrl+Q**: save and quit

Press any key to close this help.
`

func renderHelp(width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamourStyle(), glamour.WithWordWrap(width-4))
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.showHelp {
		return m.helpText
	}
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteByte('\n')
	b.WriteString(m.spreadView())
	b.WriteByte('\n')
	b.WriteString(m.statusView())
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) headerView() string {
	st := m.sess.Navigator().State()
	fit := m.sess.Fit()
	caps := m.sess.Caps()
	line := fmt.Sprintf("Spread %d/%d  pages %d-%d  %s  %.1fpx  %d lines x %d chars",
		st.Current+1, st.Total, st.LeftPage()+1, st.RightPage()+1,
		m.sess.Mode(), fit.FontSizePx, caps.MaxLines, caps.MaxCharsPerLine)
	if st.Transitioning {
		arrow := "->"
		if st.Direction == navigator.Backward {
			arrow = "<-"
		}
		line += "  turning " + arrow
	}
	return titleStyle.Render(m.fit(line))
}

func (m *Model) spreadView() string {
	boxes := make([]string, len(m.editors))
	for i := range m.editors {
		style := blurredPage
		if i == m.focus {
			style = focusedPage
		}
		page := m.pageIndex(i)
		text, _ := m.sess.Page(page)
		footer := mutedStyle.Render(fmt.Sprintf("p.%d  %d/%d", page+1, utf8.RuneCountInString(text), m.sess.Caps().PageCharLimit))
		boxes[i] = style.Render(lipgloss.JoinVertical(lipgloss.Left, m.editors[i].View(), footer))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m *Model) statusView() string {
	s := m.fit(m.status)
	if n := m.sess.NonEmptyCount(); n >= book.MaxPages {
		s = m.fit(m.status + "  (book full)")
	}
	if m.warn {
		return warnStyle.Render(s)
	}
	return statusStyle.Render(s)
}

// fit truncates s to the terminal width.
func (m *Model) fit(s string) string {
	if m.width <= 0 {
		return s
	}
	return rw.Truncate(s, m.width, "…")
}
