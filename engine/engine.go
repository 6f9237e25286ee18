// Package engine builds runnable parsing engines from synthesized
// specifications and keeps them for reuse.
package engine

import (
	"io"
	"log/slog"

	"github.com/nihei9/rulegen/driver"
	"github.com/nihei9/rulegen/rule"
	spec "github.com/nihei9/rulegen/spec/grammar"
)

// Engine is a compiled lexer and parser pair. It never changes once built;
// every run gets its own token stream and value stack.
type Engine struct {
	grammar *spec.CompiledGrammar
	report  *spec.Report
}

func newEngine(cg *spec.CompiledGrammar, report *spec.Report) *Engine {
	return &Engine{
		grammar: cg,
		report:  report,
	}
}

func (e *Engine) Name() string {
	return e.grammar.Name
}

// Digest identifies the specification the engine was built from.
func (e *Engine) Digest() string {
	return e.grammar.Digest
}

// Location reports whether handlers receive source.Token values.
func (e *Engine) Location() bool {
	return e.grammar.Location
}

func (e *Engine) Grammar() *spec.CompiledGrammar {
	return e.grammar
}

// Report returns the description of the automaton. It is nil for an engine
// loaded from a disk cache entry written without one.
func (e *Engine) Report() *spec.Report {
	return e.report
}

type runConfig struct {
	discards map[string]rule.DiscardFunc
	logger   *slog.Logger
}

type RunOption func(c *runConfig)

// Discards registers the functions named discard rules invoke.
func Discards(discards map[string]rule.DiscardFunc) RunOption {
	return func(c *runConfig) {
		c.discards = discards
	}
}

// Trace logs every shift and reduction at debug level.
func Trace(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// Run parses src and returns the value the start handler produced. A run
// either returns the value or an error; a partial value is never returned.
func (e *Engine) Run(src io.Reader, handlers map[string]rule.HandlerFunc, opts ...RunOption) (any, error) {
	c := &runConfig{}
	for _, opt := range opts {
		opt(c)
	}

	toks, err := driver.NewTokenStream(e.grammar, src, driver.DiscardHooks(c.discards))
	if err != nil {
		return nil, err
	}
	gram := driver.NewGrammar(e.grammar)
	reduction := driver.NewReductionActionSet(gram, handlers, e.grammar.Location)
	var semAct driver.SemanticActionSet = reduction
	if c.logger != nil {
		semAct = driver.NewTracingActionSet(gram, c.logger, reduction)
	}
	p, err := driver.NewParser(toks, gram, driver.SemanticAction(semAct))
	if err != nil {
		return nil, err
	}
	if err := p.Parse(); err != nil {
		return nil, err
	}

	v, _ := reduction.Result()
	return v, nil
}
