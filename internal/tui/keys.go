/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextSpread key.Binding
	PrevSpread key.Binding
	SwitchPage key.Binding
	Paste      key.Binding
	Replace    key.Binding
	ClearPage  key.Binding
	EditorMode key.Binding
	Export     key.Binding
	Save       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextSpread: key.NewBinding(key.WithKeys("pgdown", "alt+right"), key.WithHelp("pgdn", "next spread")),
		PrevSpread: key.NewBinding(key.WithKeys("pgup", "alt+left"), key.WithHelp("pgup", "previous spread")),
		SwitchPage: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "other page")),
		Paste:      key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "write clipboard to book")),
		Replace:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "replace book with clipboard")),
		ClearPage:  key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "clear page")),
		EditorMode: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "editor mode")),
		Export:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export")),
		Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevSpread, k.NextSpread, k.SwitchPage, k.Paste, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevSpread, k.NextSpread, k.SwitchPage},
		{k.Paste, k.Replace, k.ClearPage},
		{k.EditorMode, k.Export, k.Save},
		{k.Help, k.Quit},
	}
}
