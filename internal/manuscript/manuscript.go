/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package manuscript reads book manuscripts: a small text format that names
// the book, picks a layout mode and carries its text either as explicit
// pages or as free text to be flowed.
//
//	title "My Book"
//	mode mobile
//	page { "first page" "continues here" }
//	"free text is flowed"
//
// Strings use Go quoting. Lines starting with '#' or '//' are comments.
package manuscript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"pixelbook/internal/textlayout"
)

var (
	manuscriptLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	fileParser = participle.MustBuild[file](
		participle.Lexer(manuscriptLexer),
		participle.Elide("Whitespace", "LineComment", "HashComment"),
	)
)

type file struct {
	Entries []*entry `parser:"Newline* ( @@ Newline* )*"`
}

type entry struct {
	Directive *directive `parser:"  @@"`
	Page      *pageBlock `parser:"| @@"`
	Text      *freeText  `parser:"| @@"`
}

type directive struct {
	Pos   lexer.Position `parser:""`
	Key   string         `parser:"@( 'title' | 'mode' )"`
	Value stringLiteral  `parser:"( @String | @Ident )"`
}

type pageBlock struct {
	Lines []*pageLine `parser:"'page' '{' Newline* ( @@ Newline* )* '}'"`
}

type pageLine struct {
	Text stringLiteral `parser:"@String"`
}

type freeText struct {
	Text stringLiteral `parser:"@String"`
}

// stringLiteral unquotes Go-style strings on capture; identifiers pass through.
type stringLiteral string

// Capture implements participle.Capture.
func (s *stringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	v := values[0]
	if strings.HasPrefix(v, `"`) {
		u, err := strconv.Unquote(v)
		if err != nil {
			return err
		}
		v = u
	}
	*s = stringLiteral(v)
	return nil
}

// Manuscript is a parsed manuscript.
type Manuscript struct {
	Title string
	// Mode is empty when the manuscript does not pick one.
	Mode textlayout.Mode
	// Pages holds the explicit page blocks in order, lines joined by "\n".
	Pages []string
	// FreeText holds the free strings joined by "\n".
	FreeText string
}

// Error is a parse error with position context.
type Error struct {
	Name    string
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	name := e.Name
	if name == "" {
		name = "manuscript"
	}
	return fmt.Sprintf("%s:%d:%d: %s", name, e.Line, e.Column, e.Message)
}

func errorAt(pos lexer.Position, format string, args ...any) *Error {
	return &Error{Name: pos.Filename, Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}

// Parse reads a manuscript from r. name is used in error positions.
func Parse(name string, r io.Reader) (*Manuscript, error) {
	f, err := fileParser.Parse(name, r)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return build(f)
}

// ParseString parses manuscript content from a string.
func ParseString(name, src string) (*Manuscript, error) {
	f, err := fileParser.ParseString(name, src)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return build(f)
}

// ParseFile parses the manuscript at path.
func ParseFile(path string) (*Manuscript, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(path, fh)
}

func wrapParseError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return errorAt(perr.Position(), "%s", perr.Message())
	}
	return err
}

func build(f *file) (*Manuscript, error) {
	m := &Manuscript{}
	var free []string
	seen := map[string]bool{}
	for _, e := range f.Entries {
		switch {
		case e.Directive != nil:
			d := e.Directive
			if seen[d.Key] {
				return nil, errorAt(d.Pos, "%s set twice", d.Key)
			}
			seen[d.Key] = true
			switch d.Key {
			case "title":
				m.Title = string(d.Value)
			case "mode":
				mode, err := textlayout.ParseMode(string(d.Value))
				if err != nil {
					return nil, errorAt(d.Pos, "%v", err)
				}
				m.Mode = mode
			}
		case e.Page != nil:
			lines := make([]string, len(e.Page.Lines))
			for i, l := range e.Page.Lines {
				lines[i] = string(l.Text)
			}
			m.Pages = append(m.Pages, strings.Join(lines, "\n"))
		case e.Text != nil:
			free = append(free, string(e.Text.Text))
		}
	}
	m.FreeText = strings.Join(free, "\n")
	return m, nil
}
