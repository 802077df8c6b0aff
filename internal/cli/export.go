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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pixelbook/internal/book"
	"pixelbook/internal/config"
	"pixelbook/internal/export"
	"pixelbook/internal/notify"
	"pixelbook/internal/telemetry"
)

var (
	exportFormat string
	exportBundle string
	exportOut    string
	exportPreset string
	exportPrefix string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every spread with text as an image",
	Long: `Captures every spread that has text, one image per spread, named
<prefix>-pages-<left>-<right>.<ext>. Spreads are always laid out with the
desktop profile whatever mode the editor uses. The images go to a directory, a
zip archive or a single PDF book.

Presets:
  web    PNG at double size in a directory, transparent background
  print  PDF book at four times the size, black ink on white`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Image format: png or svg (default from config)")
	exportCmd.Flags().StringVar(&exportBundle, "bundle", "", "Output: dir, zip or pdf (default from config)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output directory (default from config)")
	exportCmd.Flags().StringVar(&exportPreset, "preset", "", "Export preset: web or print")
	exportCmd.Flags().StringVar(&exportPrefix, "prefix", "", "File name prefix (default from config)")
	rootCmd.AddCommand(exportCmd)
}

// exportChoices are the per-run overrides of the export config.
type exportChoices struct {
	Format string
	Bundle string
	OutDir string
	Preset string
	Prefix string
}

// exporter runs exports with one builder, so a second request while one is
// running is refused.
type exporter struct {
	format  string
	bundle  string
	outDir  string
	prefix  string
	builder *export.Builder
}

// newExporter layers the preset and then the explicit choices over the export
// config.
func newExporter(cfg config.ExportConfig, c exportChoices) (*exporter, error) {
	settings, err := export.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	format, bundle, outDir := cfg.Format, cfg.Bundle, cfg.OutDir
	if c.Preset != "" {
		p, err := export.LookupPreset(c.Preset)
		if err != nil {
			return nil, err
		}
		if settings, err = p.Apply(settings); err != nil {
			return nil, err
		}
		format, bundle = p.Format, p.Bundle
	}
	if c.Format != "" {
		format = c.Format
	}
	if c.Bundle != "" {
		bundle = c.Bundle
	}
	if c.OutDir != "" {
		outDir = c.OutDir
	}
	if outDir == "" {
		outDir = "."
	}
	if p := strings.TrimSpace(c.Prefix); p != "" {
		settings.FilePrefix = p
	}
	r, err := export.NewRasterizer(format, cfg.FontPath, cfg.BackgroundImage)
	if err != nil {
		return nil, err
	}
	return &exporter{
		format:  r.Ext(),
		bundle:  bundle,
		outDir:  filepath.Clean(outDir),
		prefix:  settings.FilePrefix,
		builder: export.NewBuilder(r, export.WithSettings(settings)),
	}, nil
}

// run exports the current pages of sess and raises the matching notice.
func (x *exporter) run(ctx context.Context, sess *book.Session) (export.Report, error) {
	sink, err := export.NewSink(x.bundle, x.format, x.outDir, x.prefix)
	if err != nil {
		return export.Report{}, err
	}
	rep, err := x.builder.Export(ctx, sess.Pages(), sess.Navigator(), sink)
	var aborted *export.ExportAbortedError
	switch {
	case err == nil:
		_ = notify.ExportFinished(len(rep.Spreads), len(rep.Failed), rep.Location)
		telemetry.Default().ExportCompleted(rep.Format, len(rep.Spreads), len(rep.Failed))
	case errors.Is(err, export.ErrNothingToExport):
		_ = notify.NothingToExport()
	case errors.As(err, &aborted):
		_ = notify.ExportAborted(aborted.Err)
	}
	return rep, err
}

// summarize runs an export for the interactive surfaces: an empty book is a
// notice, not a failure.
func (x *exporter) summarize(ctx context.Context, sess *book.Session) (string, error) {
	rep, err := x.run(ctx, sess)
	if errors.Is(err, export.ErrNothingToExport) {
		return "Nothing to export: the book has no text yet", nil
	}
	if err != nil {
		return "", err
	}
	return reportLine(rep), nil
}

func reportLine(rep export.Report) string {
	s := fmt.Sprintf("Exported %d spreads to %s", len(rep.Files), rep.Location)
	if n := len(rep.Failed); n > 0 {
		s += fmt.Sprintf(", %d failed", n)
	}
	return s
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, false, func(ctx context.Context, e *env, sess *book.Session) error {
		x, err := newExporter(e.cfg.Export, exportChoices{
			Format: exportFormat,
			Bundle: exportBundle,
			OutDir: exportOut,
			Preset: exportPreset,
			Prefix: exportPrefix,
		})
		if err != nil {
			return err
		}
		rep, err := x.run(ctx, sess)
		out := cmd.OutOrStdout()
		if errors.Is(err, export.ErrNothingToExport) {
			_, _ = fmt.Fprintln(out, "Nothing to export: the book has no text yet")
			return nil
		}
		if err != nil {
			return err
		}
		for _, f := range rep.Files {
			_, _ = fmt.Fprintln(out, f)
		}
		for _, ce := range rep.Failed {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", ce)
		}
		_, _ = fmt.Fprintf(out, "%s in %s\n", reportLine(rep), rep.Elapsed.Round(time.Millisecond))
		return nil
	})
}
