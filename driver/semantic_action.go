package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/source"
)

// SemanticActionSet is a set of semantic actions a parser calls. An error
// returned from any of them aborts the parse.
type SemanticActionSet interface {
	// Shift runs when the parser shifts a symbol onto a state stack. `tok` is a token corresponding to the symbol.
	Shift(tok VToken) error

	// Reduce runs when the parser reduces an RHS of a production to its LHS. `prodNum` is a number of the production.
	Reduce(prodNum int) error

	// Accept runs when the parser accepts an input.
	Accept() error
}

var (
	_ SemanticActionSet = &ReductionActionSet{}
	_ SemanticActionSet = &TracingActionSet{}
)

type frame struct {
	name  string
	value any
}

// ReductionActionSet threads values bottom-up through the derivation. A
// terminal is valued by its text, or by a source.Token when locations are
// tracked; a nonterminal is valued by whatever its handler returns.
type ReductionActionSet struct {
	gram     Grammar
	handlers map[string]rule.HandlerFunc
	location bool
	stack    []*frame
	result   any
	accepted bool
}

func NewReductionActionSet(gram Grammar, handlers map[string]rule.HandlerFunc, location bool) *ReductionActionSet {
	return &ReductionActionSet{
		gram:     gram,
		handlers: handlers,
		location: location,
		stack:    make([]*frame, 0, 100),
	}
}

func (a *ReductionActionSet) Shift(tok VToken) error {
	text := string(tok.Lexeme())
	var v any = text
	if a.location {
		v = source.Token{
			Text: text,
			Span: tok.Span(),
		}
	}
	a.stack = append(a.stack, &frame{
		name:  a.gram.Terminal(tok.TerminalID()),
		value: v,
	})
	return nil
}

func (a *ReductionActionSet) Reduce(prodNum int) error {
	info := a.gram.Production(prodNum)
	if info == nil {
		return fmt.Errorf("production %v has no declared alternative", prodNum)
	}
	h, ok := a.handlers[info.Nonterminal]
	if !ok {
		return fmt.Errorf("no handler is registered for %v", info.Nonterminal)
	}

	// An empty alternative yields empty slices.
	n := a.gram.AlternativeSymbolCount(prodNum)
	handle := a.stack[len(a.stack)-n:]
	names := make([]string, n)
	values := make([]any, n)
	for i, f := range handle {
		names[i] = f.name
		values[i] = f.value
	}

	v, err := call(h, info.Nonterminal, info.Alternative, names, values)
	if err != nil {
		return &HandlerError{
			Nonterminal: info.Nonterminal,
			Alternative: info.Alternative,
			Cause:       err,
		}
	}

	a.stack = a.stack[:len(a.stack)-n]
	a.stack = append(a.stack, &frame{
		name:  info.Nonterminal,
		value: v,
	})
	return nil
}

func call(h rule.HandlerFunc, nonterminal string, alt int, names []string, values []any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(nonterminal, alt, names, values)
}

func (a *ReductionActionSet) Accept() error {
	if len(a.stack) != 1 {
		return fmt.Errorf("the value stack must hold exactly the start symbol on acceptance; depth: %v", len(a.stack))
	}
	a.result = a.stack[0].value
	a.accepted = true
	return nil
}

// Result returns the value of the start symbol. The second result is false
// until the parser accepts its input.
func (a *ReductionActionSet) Result() (any, bool) {
	return a.result, a.accepted
}

// TracingActionSet logs every shift, reduction, and acceptance at debug
// level before handing it to the next action set.
type TracingActionSet struct {
	gram   Grammar
	logger *slog.Logger
	next   SemanticActionSet
}

func NewTracingActionSet(gram Grammar, logger *slog.Logger, next SemanticActionSet) *TracingActionSet {
	return &TracingActionSet{
		gram:   gram,
		logger: logger,
		next:   next,
	}
}

func (a *TracingActionSet) Shift(tok VToken) error {
	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		term := tok.TerminalID()
		a.logger.Debug("shift",
			slog.String("terminal", a.gram.Terminal(term)),
			slog.String("lexeme", string(tok.Lexeme())),
			slog.String("span", tok.Span().String()))
	}
	if a.next == nil {
		return nil
	}
	return a.next.Shift(tok)
}

func (a *TracingActionSet) Reduce(prodNum int) error {
	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		attrs := []any{
			slog.Int("production", prodNum),
			slog.String("lhs", a.gram.NonTerminal(a.gram.LHS(prodNum))),
		}
		if info := a.gram.Production(prodNum); info != nil {
			attrs = append(attrs, slog.Int("alternative", info.Alternative), slog.Any("symbols", info.Symbols))
		}
		a.logger.Debug("reduce", attrs...)
	}
	if a.next == nil {
		return nil
	}
	return a.next.Reduce(prodNum)
}

func (a *TracingActionSet) Accept() error {
	a.logger.Debug("accept")
	if a.next == nil {
		return nil
	}
	return a.next.Accept()
}
