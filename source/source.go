// Package source holds the positional value model shared by the lexer
// instrumentation and the reduction handlers.
package source

import (
	"fmt"
	"unicode/utf8"
)

// Position is a 1-based line and column. Columns count characters, not
// bytes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%v:%v", p.Line, p.Column)
}

// Span covers a piece of input. End points just past the last character.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (s Span) String() string {
	return fmt.Sprintf("%v-%v", s.Start, s.End)
}

// Token is the value a handler receives for a terminal when location
// tracking is enabled. Without location tracking the handler receives the
// bare text.
type Token struct {
	Text string
	Span Span
}

func (t Token) String() string {
	return t.Text
}

// Text returns the matched text of a terminal value, whichever form it takes.
// The second result is false when v is not a terminal value.
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case Token:
		return t.Text, true
	case *Token:
		return t.Text, true
	}
	return "", false
}

// Tracker accumulates line and column counters over every matched lexeme,
// including the ones the lexer discards.
type Tracker struct {
	line int
	col  int
}

func NewTracker() *Tracker {
	return &Tracker{
		line: 1,
		col:  1,
	}
}

// Position returns the position of the next character to be consumed.
func (t *Tracker) Position() Position {
	return Position{
		Line:   t.line,
		Column: t.col,
	}
}

// Advance consumes a lexeme and returns the span it covers. A newline
// increments the line and resets the column to 1.
func (t *Tracker) Advance(lexeme []byte) Span {
	start := t.Position()
	for len(lexeme) > 0 {
		r, size := utf8.DecodeRune(lexeme)
		lexeme = lexeme[size:]
		if r == '\n' {
			t.line++
			t.col = 1
			continue
		}
		t.col++
	}
	return Span{
		Start: start,
		End:   t.Position(),
	}
}
