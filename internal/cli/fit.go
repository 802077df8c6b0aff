/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pixelbook/internal/textlayout"
)

var (
	fitWidth  float64
	fitHeight float64
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Print the font size and caps for a page container",
	Long: `Fits the layout profile into a page container of the given size and prints
the font size, line height and text caps. The profile's book scale is applied to
the container first. With mode auto the container itself decides: a small one
is fitted with the mobile profile.`,
	Args: cobra.NoArgs,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().Float64Var(&fitWidth, "width", 450, "Page container width in px")
	fitCmd.Flags().Float64Var(&fitHeight, "height", 540, "Page container height in px")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, _ []string) error {
	e, err := setup(false)
	if err != nil {
		return err
	}
	mode := e.mode
	if e.auto {
		mode = textlayout.ResolveMode(textlayout.IsCompactViewport(fitWidth, fitHeight), false)
	}
	p := textlayout.ProfileFor(mode)
	d := textlayout.Dimensions{Width: fitWidth, Height: fitHeight}.Scale(p.BookScale)
	res, err := textlayout.Fit(d, p)
	if errors.Is(err, textlayout.ErrLayoutUnready) {
		return fmt.Errorf("width and height must be positive: %w", err)
	}
	if err != nil {
		return err
	}
	caps := res.Caps(p)
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%-12s %s (book scale %g)\n", "Mode", p.Mode, p.BookScale)
	_, _ = fmt.Fprintf(out, "%-12s %g x %g px\n", "Container", d.Width, d.Height)
	_, _ = fmt.Fprintf(out, "%-12s %.2f px\n", "Font size", res.FontSizePx)
	_, _ = fmt.Fprintf(out, "%-12s %.2f px\n", "Line height", res.LineHeightPx)
	_, _ = fmt.Fprintf(out, "%-12s %d lines x %d characters, %d per page\n", "Caps", caps.MaxLines, caps.MaxCharsPerLine, caps.PageCharLimit)
	return nil
}
