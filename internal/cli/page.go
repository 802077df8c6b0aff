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
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"pixelbook/internal/book"
	"pixelbook/internal/textlayout"
)

var (
	showFull bool
	showAll  bool
)

const previewWidth = 40

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Set or clear a single page",
}

var pageSetCmd = &cobra.Command{
	Use:   "set <n> <text...>",
	Short: "Replace page n with text, trimmed to fit the page",
	Long: `Replaces page n (1-based) with text. The text goes through the same
limits as typing: lines longer than the page width move their overflow onto the
next line and anything past the last line or the page limit is cut. Pass - as
the text to read it from stdin.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPageSet,
}

var pageClearCmd = &cobra.Command{
	Use:   "clear <n>",
	Short: "Empty page n",
	Args:  cobra.ExactArgs(1),
	RunE:  runPageClear,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize the spreads of the book",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showFull, "full", false, "Print every page wrapped to the page width")
	showCmd.Flags().BoolVar(&showAll, "all", false, "Include blank spreads")
	pageCmd.AddCommand(pageSetCmd, pageClearCmd)
	rootCmd.AddCommand(pageCmd, showCmd)
}

func runPageSet(cmd *cobra.Command, args []string) error {
	page, err := userPage(args[0])
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		text = strings.TrimRight(string(data), "\n")
	}
	return withSession(cmd, false, func(ctx context.Context, _ *env, sess *book.Session) error {
		stored, err := sess.SetPage(ctx, page, text)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Page %d set (%d characters)\n", page+1, utf8.RuneCountInString(stored))
		if stored != text {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "note: text was adjusted to fit the page (%d of %d characters kept)\n",
				utf8.RuneCountInString(stored), utf8.RuneCountInString(text))
		}
		return nil
	})
}

func runPageClear(cmd *cobra.Command, args []string) error {
	page, err := userPage(args[0])
	if err != nil {
		return err
	}
	return withSession(cmd, false, func(ctx context.Context, _ *env, sess *book.Session) error {
		if err := sess.ClearPage(ctx, page); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Page %d cleared\n", page+1)
		return nil
	})
}

func runShow(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, false, func(_ context.Context, _ *env, sess *book.Session) error {
		writeSummary(cmd.OutOrStdout(), sess, showAll, showFull)
		return nil
	})
}

// writeSummary prints one block per spread: both page numbers with a one-line
// preview, or the wrapped page text when full is set.
func writeSummary(w io.Writer, sess *book.Session, all, full bool) {
	pages := sess.Pages()
	p := sess.Profile()
	total := book.SpreadCountFor(sess.NonEmptyCount())
	_, _ = fmt.Fprintf(w, "Book: %d of %d pages used, %d spreads, mode %s (%d x %d, %d characters per page)\n",
		sess.NonEmptyCount(), book.MaxPages, total, p.Mode, p.CharsPerLine, p.LinesPerPage, p.PageCharLimit)
	for k := 0; 2*k < len(pages); k++ {
		left, right := pages[2*k], pages[2*k+1]
		blank := strings.TrimSpace(left) == "" && strings.TrimSpace(right) == ""
		if blank && !all {
			continue
		}
		_, _ = fmt.Fprintf(w, "\nSpread %d (pages %d-%d)\n", k+1, 2*k+1, 2*k+2)
		for i, text := range []string{left, right} {
			n := 2*k + i + 1
			if full {
				writePage(w, n, text, p.CharsPerLine)
				continue
			}
			_, _ = fmt.Fprintf(w, "  %3d  %s  %d chars\n", n, runewidth.FillRight(preview(text), previewWidth), utf8.RuneCountInString(text))
		}
	}
}

func preview(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(blank)"
	}
	line := strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(line, previewWidth, "…")
}

func writePage(w io.Writer, n int, text string, perLine int) {
	_, _ = fmt.Fprintf(w, "  page %d\n", n)
	if strings.TrimSpace(text) == "" {
		_, _ = fmt.Fprintln(w, "    (blank)")
		return
	}
	for _, line := range textlayout.WrapLines(text, perLine) {
		_, _ = fmt.Fprintf(w, "    | %s\n", line)
	}
}
