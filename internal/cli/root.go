/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli is the pixelbook command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pixelbook/internal/version"
)

var (
	modeFlag     string
	bookFlag     string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "pixelbook",
	Short: "Write into a two-page pixel book that keeps every page fitting",
	Long: `Pixelbook keeps a book of fixed pages shown two at a time. Text is sized
to the page and capped so that it never overflows, whether it is typed in the
terminal editor or the desktop window, flowed in from a file or the clipboard,
or imported from a manuscript. Spreads export as PNG or SVG images.

Without a subcommand pixelbook opens the terminal editor.`,
	RunE:          runEdit,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Layout mode: auto, desktop, editor or mobile (default from config)")
	rootCmd.PersistentFlags().StringVar(&bookFlag, "book", "", "Book file (file and sqlite backends) or book name (postgres)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.Version = version.String()
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.ExecuteContext(ctx)
}

func versionTemplate() string {
	return fmt.Sprintf("pixelbook %s\n", version.String())
}
