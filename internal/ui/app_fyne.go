//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pixelbook/internal/book"
	"pixelbook/internal/crash"
	applog "pixelbook/internal/log"
	"pixelbook/internal/navigator"
	"pixelbook/internal/notify"
	"pixelbook/internal/telemetry"
	"pixelbook/internal/textlayout"
	"pixelbook/internal/version"
)

// Run opens the book in a desktop window and blocks until it is closed.
func Run(ctx context.Context, opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	fyneApp := app.NewWithID("pixelbook")
	w := fyneApp.NewWindow("Pixelbook")
	prefs := fyneApp.Preferences()
	winW := max(640, prefs.IntWithFallback("window.width", 1100))
	winH := max(480, prefs.IntWithFallback("window.height", 760))
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	var (
		sess     *book.Session
		entries  [2]*pageEntry
		themes   [2]*pageTheme
		themed   [2]*container.ThemeOverride
		updating bool
		status   = widget.NewLabel("Ready")
		header   = widget.NewLabel("")
		editor   = opts.Mode == textlayout.ModeEditor
	)
	setStatus := func(s string) { status.SetText(s) }

	refreshHeader := func() {
		st := sess.Navigator().State()
		fit, caps := sess.Fit(), sess.Caps()
		s := fmt.Sprintf("Spread %d/%d  ·  pages %d-%d  ·  %s  ·  %.1fpx  ·  %d×%d",
			st.Current+1, st.Total, st.LeftPage()+1, st.RightPage()+1,
			sess.Mode(), fit.FontSizePx, caps.MaxLines, caps.MaxCharsPerLine)
		if st.Transitioning {
			s += "  ·  turning " + st.Direction.String()
		}
		header.SetText(s)
	}
	loadSpread := func() {
		st := sess.Navigator().State()
		updating = true
		for side, e := range entries {
			text, err := sess.Page(2*st.Current + side)
			if err != nil {
				text = ""
			}
			e.SetText(text)
			e.Enable()
		}
		updating = false
		refreshHeader()
	}
	onFit := func(fit textlayout.FitResult, _ textlayout.Caps) {
		fyne.Do(func() {
			for i := range themes {
				if themes[i] == nil {
					continue
				}
				themes[i].textSize = float32(fit.FontSizePx)
				themed[i].Refresh()
			}
			refreshHeader()
		})
	}
	onSettle := func(navigator.State) { fyne.Do(loadSpread) }

	mode := opts.Mode
	if mode == "" {
		mode = textlayout.ModeDesktop
	}
	sess = book.Open(ctx, mode, opts.Store,
		book.WithRefitOptions(textlayout.WithListener(onFit)),
		book.WithNavigatorOptions(navigator.WithSettleListener(onSettle)))
	defer crash.Recover(&crash.Target{Dir: opts.CrashDir, Pages: sess.Pages})

	pageIndex := func(side int) int { return 2*sess.Navigator().State().Current + side }
	for i := range entries {
		side := i
		e := newPageEntry(func(k string) bool {
			if sess.Navigator().State().Transitioning {
				return false
			}
			if !sess.AllowKey(pageIndex(side), k) {
				setStatus("Page is full")
				return false
			}
			return true
		})
		e.SetPlaceHolder("Write here…")
		e.OnChanged = func(text string) {
			if updating {
				return
			}
			ed, err := sess.Edit(ctx, pageIndex(side), text, e.cursorOffset())
			if err != nil {
				setStatus("Save failed: " + err.Error())
			}
			if ed.Changed {
				updating = true
				e.setTextAt(ed.Text, ed.Cursor)
				updating = false
			}
			refreshHeader()
		}
		entries[i] = e
		themes[i] = newPageTheme()
		themed[i] = container.NewThemeOverride(e, themes[i])
	}

	applyMode := func(compact bool) {
		if m := textlayout.ResolveMode(compact, editor); m != sess.Mode() {
			sess.SetMode(m)
			l.Info("layout mode changed", slog.String("mode", string(m)))
		}
	}
	layout := &spreadLayout{
		scale: func() float64 { return sess.Profile().BookScale },
		onSize: func(s fyne.Size) {
			applyMode(opts.Mode == textlayout.ModeMobile || textlayout.IsCompactViewport(float64(s.Width), float64(s.Height)))
		},
		onResize: sess.Resize,
	}
	spread := container.New(layout, newPageBackground(), newPageBackground(), themed[0], themed[1])

	turn := func(started bool) {
		if !started {
			return
		}
		for _, e := range entries {
			e.Disable()
		}
		refreshHeader()
	}
	flow := func(replace bool) {
		if sess.Navigator().State().Transitioning {
			return
		}
		text := w.Clipboard().Content()
		if strings.TrimSpace(text) == "" {
			setStatus("Clipboard is empty")
			return
		}
		var (
			r   book.FlowResult
			err error
		)
		if replace {
			r, err = sess.ReplaceWithExternalText(ctx, text)
		} else {
			r, err = sess.WriteExternalText(ctx, text)
		}
		telemetry.Default().ExternalTextWritten(r.PagesWritten, r.Dropped)
		loadSpread()
		switch {
		case err != nil:
			setStatus("Save failed: " + err.Error())
		case r.Truncated():
			setStatus(fmt.Sprintf("Book full: %d characters not written", r.Dropped))
			dialog.ShowInformation("Book full", fmt.Sprintf("%d characters did not fit and were not written.", r.Dropped), w)
			_ = notify.Truncated(r.Dropped)
		case r.PagesWritten == 0:
			setStatus("Book full: nothing written")
		default:
			setStatus(fmt.Sprintf("Wrote %d pages from page %d", r.PagesWritten, r.FirstPage+1))
		}
	}

	prevBtn := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() { turn(sess.Navigator().Prev()) })
	nextBtn := widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() { turn(sess.Navigator().Next()) })
	writeBtn := widget.NewButtonWithIcon("Write to book", theme.ContentPasteIcon(), func() { flow(false) })
	replaceBtn := widget.NewButtonWithIcon("Replace book", theme.ContentClearIcon(), func() {
		dialog.ShowConfirm("Replace book", "Clear every page and write the clipboard from page 1?", func(ok bool) {
			if ok {
				flow(true)
			}
		}, w)
	})
	editorCheck := widget.NewCheck("Editor mode", func(v bool) {
		editor = v
		spread.Refresh()
	})
	editorCheck.SetChecked(editor)
	tools := []fyne.CanvasObject{prevBtn, nextBtn, writeBtn, replaceBtn, editorCheck}
	if opts.Export != nil {
		var exportBtn *widget.Button
		exportBtn = widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), func() {
			exportBtn.Disable()
			setStatus("Exporting…")
			go func() {
				summary, err := opts.Export(ctx, sess)
				fyne.Do(func() {
					exportBtn.Enable()
					loadSpread()
					if err != nil {
						setStatus("Export failed: " + err.Error())
						return
					}
					setStatus(summary)
				})
			}()
		})
		tools = append(tools, exportBtn)
	}

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyLeft, Modifier: fyne.KeyModifierAlt}, func(fyne.Shortcut) {
		turn(sess.Navigator().HandleKey("left"))
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyRight, Modifier: fyne.KeyModifierAlt}, func(fyne.Shortcut) {
		turn(sess.Navigator().HandleKey("right"))
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		if err := sess.Flush(ctx); err != nil {
			setStatus("Save failed: " + err.Error())
			return
		}
		setStatus("Saved")
	})

	top := container.NewBorder(nil, nil, container.NewHBox(tools...), nil, header)
	w.SetContent(container.NewBorder(top, status, nil, nil, spread))
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := sess.Close(ctx); err != nil {
			l.Error("save on close failed", slog.Any("err", err))
			dialog.ShowConfirm("Book not saved", fmt.Sprintf("The book could not be saved: %v\nClose anyway?", err), func(ok bool) {
				if ok {
					w.Close()
				}
			}, w)
			return
		}
		w.Close()
	})
	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	loadSpread()
	w.ShowAndRun()
	return nil
}
