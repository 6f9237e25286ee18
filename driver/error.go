package driver

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// SourceContext is the source line an error occurred on, with the column
// the caret points at.
type SourceContext struct {
	Line   string
	Prefix string
}

// Caret renders the line and a caret under the first character following
// the prefix. Wide characters take two cells.
func (c *SourceContext) Caret() string {
	if c == nil || c.Line == "" {
		return ""
	}
	line := strings.ReplaceAll(c.Line, "\t", " ")
	prefix := strings.ReplaceAll(c.Prefix, "\t", " ")
	return fmt.Sprintf("%v\n%v^", line, strings.Repeat(" ", runewidth.StringWidth(prefix)))
}

// LexicalError reports input no token rule matches.
type LexicalError struct {
	Row     int
	Col     int
	Text    string
	Context *SourceContext
}

func (e *LexicalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%v: invalid token: %q", e.Row, e.Col, e.Text)
	if c := e.Context.Caret(); c != "" {
		fmt.Fprintf(&b, "\n%v", c)
	}
	return b.String()
}

// SyntaxError reports a token no action of the current state accepts.
type SyntaxError struct {
	Row  int
	Col  int
	Text string
	EOF  bool

	// Terminal is the name of the offending terminal.
	Terminal          string
	ExpectedTerminals []string
	Context           *SourceContext
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	if e.EOF {
		fmt.Fprintf(&b, "%v:%v: unexpected end of input", e.Row, e.Col)
	} else {
		fmt.Fprintf(&b, "%v:%v: unexpected token %v %q", e.Row, e.Col, e.Terminal, e.Text)
	}
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	if c := e.Context.Caret(); c != "" {
		fmt.Fprintf(&b, "\n%v", c)
	}
	return b.String()
}

// HandlerError reports a handler that failed or panicked while reducing.
type HandlerError struct {
	Nonterminal string
	Alternative int
	Cause       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler of %v (alternative %v) failed: %v", e.Nonterminal, e.Alternative, e.Cause)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}
