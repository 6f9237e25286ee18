package driver

import (
	"bytes"
	"io"

	mldriver "github.com/nihei9/maleeni/driver"
	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/source"
	spec "github.com/nihei9/rulegen/spec/grammar"
)

type VToken interface {
	// TerminalID returns a terminal ID.
	TerminalID() int

	// Lexeme returns a lexeme.
	Lexeme() []byte

	// EOF returns true when a token represents EOF.
	EOF() bool

	// Invalid returns true when a token is invalid.
	Invalid() bool

	// Position returns the 1-based line and column of the first character.
	Position() (int, int)

	// Span returns the range the token covers.
	Span() source.Span
}

type TokenStream interface {
	Next() (VToken, error)
}

// lineContext is implemented by token streams that remember the source line
// of the latest token.
type lineContext interface {
	// Context returns the line of the latest token up to and including the
	// token, and the part of the line preceding the token.
	Context() (line string, prefix string)
}

type vToken struct {
	terminalID int
	tok        *mldriver.Token
	span       source.Span
}

func (t *vToken) TerminalID() int {
	return t.terminalID
}

func (t *vToken) Lexeme() []byte {
	return t.tok.Lexeme
}

func (t *vToken) EOF() bool {
	return t.tok.EOF
}

func (t *vToken) Invalid() bool {
	return t.tok.Invalid
}

func (t *vToken) Position() (int, int) {
	return t.span.Start.Line, t.span.Start.Column
}

func (t *vToken) Span() source.Span {
	return t.span
}

type tokenStream struct {
	lex            *mldriver.Lexer
	kindToTerminal []int
	skip           []int
	discardActions []string
	eof            int
	discards       map[string]rule.DiscardFunc
	tracker        *source.Tracker

	line   []byte
	prefix []byte
	lexeme []byte
}

type TokenStreamOption func(s *tokenStream)

// DiscardHooks registers the functions named discard rules invoke.
func DiscardHooks(discards map[string]rule.DiscardFunc) TokenStreamOption {
	return func(s *tokenStream) {
		s.discards = discards
	}
}

func NewTokenStream(g *spec.CompiledGrammar, src io.Reader, opts ...TokenStreamOption) (TokenStream, error) {
	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(g.Lexical.Maleeni), src)
	if err != nil {
		return nil, err
	}

	s := &tokenStream{
		lex:            lex,
		kindToTerminal: g.Lexical.KindToTerminal,
		skip:           g.Lexical.Skip,
		discardActions: g.Lexical.DiscardActions,
		eof:            g.Syntactic.EOFSymbol,
		tracker:        source.NewTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Next returns the next token the parser consumes. Tokens of discard rules
// never reach the parser; their named hooks run instead.
func (l *tokenStream) Next() (VToken, error) {
	for {
		tok, err := l.lex.Next()
		if err != nil {
			return nil, err
		}

		span := l.tracker.Advance(tok.Lexeme)
		l.remember(tok.Lexeme)

		if tok.EOF {
			return &vToken{
				terminalID: l.eof,
				tok:        tok,
				span:       span,
			}, nil
		}
		if tok.Invalid {
			return &vToken{
				tok:  tok,
				span: span,
			}, nil
		}

		if l.skip[tok.KindID] > 0 {
			if name := l.discardActions[tok.KindID]; name != "" {
				if f := l.discards[name]; f != nil {
					f(string(tok.Lexeme))
				}
			}
			continue
		}

		return &vToken{
			terminalID: l.kindToTerminal[tok.KindID],
			tok:        tok,
			span:       span,
		}, nil
	}
}

func (l *tokenStream) remember(lexeme []byte) {
	l.prefix = append(l.prefix[:0], l.line...)
	l.lexeme = append(l.lexeme[:0], lexeme...)
	if i := bytes.LastIndexByte(lexeme, '\n'); i >= 0 {
		l.line = append(l.line[:0], lexeme[i+1:]...)
		return
	}
	l.line = append(l.line, lexeme...)
}

func (l *tokenStream) Context() (string, string) {
	first := l.lexeme
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return string(l.prefix) + string(first), string(l.prefix)
}
