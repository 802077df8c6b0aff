/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pixelbook/internal/book"
	"pixelbook/internal/telemetry"
	"pixelbook/internal/textlayout"
	"pixelbook/internal/tui"
	"pixelbook/internal/ui"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the book in the terminal editor",
	Args:  cobra.NoArgs,
	RunE:  runEdit,
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the book in a desktop window",
	Long: `Opens the book in a desktop window. The window is only part of binaries
built with the fyne tag:

  go build -tags fyne ./cmd/pixelbook`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

// runTUI and runWindow are swapped in tests.
var (
	runTUI    = tui.Run
	runWindow = ui.Run
)

func init() {
	rootCmd.AddCommand(editCmd, uiCmd)
}

func runEdit(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, true, func(ctx context.Context, e *env, sess *book.Session) error {
		x, err := newExporter(e.cfg.Export, exportChoices{})
		if err != nil {
			return err
		}
		return runTUI(ctx, sess, tui.Options{
			Export:     func(ctx context.Context) (string, error) { return x.summarize(ctx, sess) },
			EditorMode: !e.auto && e.mode == textlayout.ModeEditor,
			Compact:    !e.auto && e.mode == textlayout.ModeMobile,
		})
	})
}

// runUI hands the store to the window, which opens its own session so its
// listeners are attached from the start.
func runUI(cmd *cobra.Command, _ []string) (err error) {
	e, err := setup(false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close storage: %w", cerr)
		}
		telemetry.Default().Flush(context.WithoutCancel(ctx))
	}()
	x, err := newExporter(e.cfg.Export, exportChoices{})
	if err != nil {
		return err
	}
	return runWindow(ctx, ui.Options{
		Store:    st,
		Mode:     e.mode,
		CrashDir: e.crashDir(),
		Export:   x.summarize,
	})
}
