/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tui is the terminal editor: one spread at a time, two page
// editors side by side, every keystroke gated and enforced by the book
// session.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"pixelbook/internal/book"
	applog "pixelbook/internal/log"
	"pixelbook/internal/notify"
	"pixelbook/internal/telemetry"
	"pixelbook/internal/textlayout"
)

// Terminal cells are mapped onto pixels with a nominal cell size so the
// font fit sees a page container like the graphical surfaces do.
const (
	cellWidthPx  = 8
	cellHeightPx = 16
	// refitSettle is how long to wait after a resize before flushing the
	// debounced re-fit.
	refitSettle = 30 * time.Millisecond
)

// Options wires the editor to its host.
type Options struct {
	// Clipboard reads the system clipboard. Defaults to clipboard.ReadAll.
	Clipboard func() (string, error)
	// Export runs an export of the current book and returns a one-line
	// summary. Nil disables the export key.
	Export func(ctx context.Context) (string, error)
	// EditorMode starts in the scaled-down editor mode.
	EditorMode bool
	// Compact keeps the mobile profile whatever the terminal size.
	Compact bool
}

type settleMsg struct{}

type refitMsg struct{}

type exportDoneMsg struct {
	summary string
	err     error
}

// Model holds the Bubble Tea state of the editor.
type Model struct {
	ctx  context.Context
	sess *book.Session
	opts Options

	keys     keyMap
	help     help.Model
	editors  [2]textarea.Model
	focus    int
	spread   int
	status   string
	warn     bool
	showHelp bool
	helpText string

	editorMode bool
	exporting  bool
	width      int
	height     int
}

// New prepares the editor for sess.
func New(ctx context.Context, sess *book.Session, opts Options) *Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.ReadAll
	}
	m := &Model{
		ctx:        ctx,
		sess:       sess,
		opts:       opts,
		keys:       defaultKeyMap(),
		help:       help.New(),
		status:     "Ready",
		editorMode: opts.EditorMode,
	}
	for i := range m.editors {
		ta := textarea.New()
		applyPageTheme(&ta)
		ta.Placeholder = "Write here..."
		m.editors[i] = ta
	}
	m.editors[0].Focus()
	m.loadSpread()
	return m
}

// Run starts the program on the alternate screen and blocks until it quits.
func Run(ctx context.Context, sess *book.Session, opts Options) error {
	p := tea.NewProgram(New(ctx, sess, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return textarea.Blink }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.applyViewport()
		return m, tea.Tick(refitSettle, func(time.Time) tea.Msg { return refitMsg{} })
	case refitMsg:
		m.sess.Refitter().Flush()
		return m, nil
	case settleMsg:
		m.sess.Navigator().Finish()
		m.loadSpread()
		return m, nil
	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.setWarn("Export failed: " + msg.err.Error())
		} else {
			m.setStatus(msg.summary)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.editors[m.focus], cmd = m.editors[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.sess.Close(m.ctx); err != nil {
			applog.WithComponent("tui").Error("save on quit failed", slog.Any("err", err))
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpText = renderHelp(m.width)
		return m, nil
	case key.Matches(msg, m.keys.NextSpread):
		return m, m.turn(m.sess.Navigator().Next())
	case key.Matches(msg, m.keys.PrevSpread):
		return m, m.turn(m.sess.Navigator().Prev())
	case key.Matches(msg, m.keys.SwitchPage):
		m.setFocus(1 - m.focus)
		return m, nil
	case key.Matches(msg, m.keys.Paste):
		if !m.turning() {
			m.flowClipboard(false)
		}
		return m, nil
	case key.Matches(msg, m.keys.Replace):
		if !m.turning() {
			m.flowClipboard(true)
		}
		return m, nil
	case key.Matches(msg, m.keys.ClearPage):
		if m.turning() {
			return m, nil
		}
		if err := m.sess.ClearPage(m.ctx, m.pageIndex(m.focus)); err != nil {
			m.setWarn(err.Error())
		}
		m.loadSpread()
		return m, nil
	case key.Matches(msg, m.keys.EditorMode):
		m.editorMode = !m.editorMode
		m.applyViewport()
		m.setStatus(fmt.Sprintf("Mode: %s", m.sess.Mode()))
		return m, tea.Tick(refitSettle, func(time.Time) tea.Msg { return refitMsg{} })
	case key.Matches(msg, m.keys.Save):
		if err := m.sess.Flush(m.ctx); err != nil {
			m.setWarn("Save failed: " + err.Error())
		} else {
			m.setStatus("Saved")
		}
		return m, nil
	case key.Matches(msg, m.keys.Export):
		return m, m.startExport()
	}
	return m.edit(msg)
}

// edit routes a keystroke into the focused page: the input gate first, then
// the editor widget, then the enforcer on the resulting text.
func (m *Model) edit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.turning() {
		return m, nil
	}
	page := m.pageIndex(m.focus)
	if !m.sess.AllowKey(page, msg.String()) {
		m.setWarn("Page is full")
		return m, nil
	}
	ta := &m.editors[m.focus]
	before := ta.Value()
	var cmd tea.Cmd
	*ta, cmd = ta.Update(msg)
	after := ta.Value()
	if after == before {
		return m, cmd
	}
	e, err := m.sess.Edit(m.ctx, page, after, cursorOffset(ta))
	if err != nil {
		m.setWarn(err.Error())
	}
	if e.Changed {
		placeText(ta, e.Text, e.Cursor)
	}
	return m, cmd
}

// turning reports a page turn in flight. The book is not changed until it
// settles.
func (m *Model) turning() bool { return m.sess.Navigator().State().Transitioning }

func (m *Model) turn(started bool) tea.Cmd {
	if !started {
		return nil
	}
	return tea.Tick(m.sess.Navigator().Duration(), func(time.Time) tea.Msg { return settleMsg{} })
}

func (m *Model) flowClipboard(replace bool) {
	text, err := m.opts.Clipboard()
	if err != nil {
		m.setWarn("Clipboard unavailable: " + err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		m.setWarn("Clipboard is empty")
		return
	}
	var r book.FlowResult
	if replace {
		r, err = m.sess.ReplaceWithExternalText(m.ctx, text)
	} else {
		r, err = m.sess.WriteExternalText(m.ctx, text)
	}
	telemetry.Default().ExternalTextWritten(r.PagesWritten, r.Dropped)
	m.loadSpread()
	switch {
	case err != nil:
		m.setWarn("Save failed: " + err.Error())
	case r.Truncated():
		m.setWarn(fmt.Sprintf("Book full: %d characters not written", r.Dropped))
		_ = notify.Truncated(r.Dropped)
	case r.PagesWritten == 0:
		m.setWarn("Book full: nothing written")
	default:
		m.setStatus(fmt.Sprintf("Wrote %d pages from page %d", r.PagesWritten, r.FirstPage+1))
	}
}

func (m *Model) startExport() tea.Cmd {
	if m.opts.Export == nil {
		m.setWarn("Export is not available here")
		return nil
	}
	if m.exporting {
		return nil
	}
	m.exporting = true
	m.setStatus("Exporting...")
	ctx, fn := m.ctx, m.opts.Export
	return func() tea.Msg {
		s, err := fn(ctx)
		return exportDoneMsg{summary: s, err: err}
	}
}

// applyViewport maps the terminal onto one page container, picks the mode
// and reports the size to the session.
func (m *Model) applyViewport() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	compact := m.opts.Compact || textlayout.IsCompactViewport(float64(m.width*cellWidthPx), float64(m.height*cellHeightPx))
	if mode := textlayout.ResolveMode(compact, m.editorMode); mode != m.sess.Mode() {
		m.sess.SetMode(mode)
	}
	w, h := m.pageCells()
	for i := range m.editors {
		m.editors[i].SetWidth(w)
		m.editors[i].SetHeight(h)
	}
	m.sess.Resize(textlayout.Dimensions{Width: float64(w * cellWidthPx), Height: float64(h * cellHeightPx)})
}

// pageCells is the text area of one page in cells: half the width minus
// border and padding, the height minus header, status and help lines.
func (m *Model) pageCells() (int, int) {
	w := max(1, m.width/2-4)
	h := max(1, m.height-5)
	return w, h
}

func (m *Model) loadSpread() {
	st := m.sess.Navigator().State()
	m.spread = st.Current
	for i := range m.editors {
		text, err := m.sess.Page(m.pageIndex(i))
		if err != nil {
			text = ""
		}
		if m.editors[i].Value() != text {
			m.editors[i].SetValue(text)
		}
	}
}

func (m *Model) pageIndex(side int) int { return 2*m.spread + side }

func (m *Model) setFocus(side int) {
	m.editors[m.focus].Blur()
	m.focus = side
	m.editors[side].Focus()
}

func (m *Model) setStatus(s string) { m.status, m.warn = s, false }

func (m *Model) setWarn(s string) { m.status, m.warn = s, true }

// cursorOffset is the rune offset of the editor cursor in its value.
func cursorOffset(ta *textarea.Model) int {
	lines := strings.Split(ta.Value(), "\n")
	row := min(ta.Line(), len(lines)-1)
	off := 0
	for _, l := range lines[:row] {
		off += utf8.RuneCountInString(l) + 1
	}
	li := ta.LineInfo()
	return off + li.StartColumn + li.ColumnOffset
}

// placeText replaces the editor value and puts the cursor at the rune offset.
func placeText(ta *textarea.Model, text string, cursor int) {
	ta.SetValue(text)
	line, col := lineCol(text, cursor)
	for i := 0; ta.Line() > line && i < 1000; i++ {
		ta.CursorUp()
	}
	ta.SetCursor(col)
}

func lineCol(text string, cursor int) (int, int) {
	line, col := 0, 0
	for i, r := range []rune(text) {
		if i >= cursor {
			break
		}
		if r == '\n' {
			line, col = line+1, 0
			continue
		}
		col++
	}
	return line, col
}
