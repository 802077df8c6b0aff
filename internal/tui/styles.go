/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	pageStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedPage = pageStyle.Copy().BorderForeground(lipgloss.Color("204"))
	blurredPage = pageStyle.Copy().BorderForeground(lipgloss.Color("240"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("211"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func applyPageTheme(editor *textarea.Model) {
	focused, blurred := textarea.DefaultStyles()
	base := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	focused.Base = base
	focused.Text = base
	focused.CursorLine = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	focused.Placeholder = mutedStyle
	focused.EndOfBuffer = mutedStyle

	blurred.Base = base
	blurred.Text = mutedStyle
	blurred.CursorLine = mutedStyle
	blurred.Placeholder = mutedStyle
	blurred.EndOfBuffer = mutedStyle

	editor.FocusedStyle = focused
	editor.BlurredStyle = blurred
	editor.Prompt = ""
	editor.ShowLineNumbers = false
	editor.EndOfBufferCharacter = ' '
	editor.CharLimit = 0
}

// glamourStyle resolves the help renderer style: PXB_GLAMOUR_STYLE, then
// GLAMOUR_STYLE, then "dark". "auto" asks the terminal.
func glamourStyle() glamour.TermRendererOption {
	style := strings.ToLower(strings.TrimSpace(os.Getenv("PXB_GLAMOUR_STYLE")))
	if style == "" {
		style = strings.ToLower(strings.TrimSpace(os.Getenv("GLAMOUR_STYLE")))
	}
	switch style {
	case "auto":
		return glamour.WithAutoStyle()
	case "dark", "light", "notty":
		return glamour.WithStandardStyle(style)
	default:
		return glamour.WithStandardStyle("dark")
	}
}
