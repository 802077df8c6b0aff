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
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"pixelbook/internal/book"
	"pixelbook/internal/manuscript"
	"pixelbook/internal/notify"
	"pixelbook/internal/telemetry"
)

var (
	writeReplace  bool
	pasteReplace  bool
	importReplace bool
)

// readClipboard is swapped in tests.
var readClipboard = clipboard.ReadAll

var writeCmd = &cobra.Command{
	Use:   "write [file|-]",
	Short: "Flow text from a file or stdin into the book",
	Long: `Flows text into the book one page-limit sized chunk per page, starting at
the first blank page after the existing content. With --replace the book is
cleared first and writing starts at page 1. Text that does not fit in the book
is dropped and reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWrite,
}

var pasteCmd = &cobra.Command{
	Use:   "paste",
	Short: "Flow the clipboard text into the book",
	Args:  cobra.NoArgs,
	RunE:  runPaste,
}

var importCmd = &cobra.Command{
	Use:   "import <manuscript>",
	Short: "Import a manuscript file",
	Long: `Imports a manuscript. A manuscript names the book and its layout mode,
lists explicit pages and holds free text that is flowed after them:

  title "My Book"
  mode mobile
  page { "first page" "continues here" }
  "free text is flowed"`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	writeCmd.Flags().BoolVar(&writeReplace, "replace", false, "Clear the book before writing")
	pasteCmd.Flags().BoolVar(&pasteReplace, "replace", false, "Clear the book before writing")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "Clear the book before importing")
	rootCmd.AddCommand(writeCmd, pasteCmd, importCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return flowText(cmd, string(data), writeReplace)
}

func runPaste(cmd *cobra.Command, _ []string) error {
	text, err := readClipboard()
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}
	return flowText(cmd, text, pasteReplace)
}

func flowText(cmd *cobra.Command, text string, replace bool) error {
	return withSession(cmd, false, func(ctx context.Context, _ *env, sess *book.Session) error {
		var (
			res book.FlowResult
			err error
		)
		if replace {
			res, err = sess.ReplaceWithExternalText(ctx, text)
		} else {
			res, err = sess.WriteExternalText(ctx, text)
		}
		reportFlow(cmd, res)
		return err
	})
}

func reportFlow(cmd *cobra.Command, r book.FlowResult) {
	out := cmd.OutOrStdout()
	switch {
	case r.PagesWritten > 0:
		_, _ = fmt.Fprintf(out, "Wrote %d characters to %d pages starting at page %d\n", r.Written, r.PagesWritten, r.FirstPage+1)
	case r.Truncated():
		_, _ = fmt.Fprintln(out, "Nothing written: the book is full")
	default:
		_, _ = fmt.Fprintln(out, "Nothing written: the text is blank")
	}
	if r.Truncated() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d characters did not fit in the book\n", r.Dropped)
		_ = notify.Truncated(r.Dropped)
	}
	telemetry.Default().ExternalTextWritten(r.PagesWritten, r.Dropped)
}

func runImport(cmd *cobra.Command, args []string) error {
	m, err := manuscript.ParseFile(args[0])
	if err != nil {
		return err
	}
	return withSession(cmd, false, func(ctx context.Context, _ *env, sess *book.Session) error {
		res, err := m.Apply(ctx, sess, importReplace)
		out := cmd.OutOrStdout()
		title := m.Title
		if title == "" {
			title = args[0]
		}
		_, _ = fmt.Fprintf(out, "Imported %s: %d explicit pages", title, res.PagesSet)
		if res.PagesSet > 0 {
			_, _ = fmt.Fprintf(out, " from page %d", res.FirstPage+1)
		}
		_, _ = fmt.Fprintln(out)
		if res.Flow.PagesWritten > 0 {
			_, _ = fmt.Fprintf(out, "Flowed %d characters over %d pages from page %d\n", res.Flow.Written, res.Flow.PagesWritten, res.Flow.FirstPage+1)
		}
		if res.PagesSkipped > 0 {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d pages did not fit in the book\n", res.PagesSkipped)
		}
		if res.Flow.Truncated() {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d characters did not fit in the book\n", res.Flow.Dropped)
			_ = notify.Truncated(res.Flow.Dropped)
		}
		if res.Flow.PagesWritten > 0 || res.Flow.Dropped > 0 {
			telemetry.Default().ExternalTextWritten(res.Flow.PagesWritten, res.Flow.Dropped)
		}
		return err
	})
}
