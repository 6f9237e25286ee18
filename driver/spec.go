package driver

import spec "github.com/nihei9/rulegen/spec/grammar"

// Grammar is the read-only view of the parsing tables a parser runs on.
type Grammar interface {
	// InitialState returns the initial state of a parser.
	InitialState() int

	// StartProduction returns the start production of grammar.
	StartProduction() int

	// Action returns an ACTION entry corresponding to a (state, terminal symbol) pair. A negative
	// entry shifts to the negated state, a positive one reduces by the production, and zero is an error.
	Action(state int, terminal int) (int, error)

	// GoTo returns a GOTO entry corresponding to a (state, non-terminal symbol) pair.
	GoTo(state int, lhs int) (int, error)

	// AlternativeSymbolCount returns a symbol count of p production.
	AlternativeSymbolCount(prod int) int

	// TerminalCount returns a terminal symbol count of grammar.
	TerminalCount() int

	// LHS returns a LHS symbol of a production.
	LHS(prod int) int

	// EOF returns the EOF symbol.
	EOF() int

	// Terminal returns a string representation of a terminal symbol.
	Terminal(terminal int) string

	// NonTerminal returns a string representation of a non-terminal symbol.
	NonTerminal(nonTerminal int) string

	// Production returns the declared alternative a production stands for.
	Production(prod int) *spec.ProductionInfo
}

type grammarImpl struct {
	g *spec.CompiledGrammar
}

func NewGrammar(g *spec.CompiledGrammar) *grammarImpl {
	return &grammarImpl{
		g: g,
	}
}

func (g *grammarImpl) InitialState() int {
	return g.g.Syntactic.InitialState
}

func (g *grammarImpl) StartProduction() int {
	return g.g.Syntactic.StartProduction
}

func (g *grammarImpl) Action(state int, terminal int) (int, error) {
	return g.g.Syntactic.Action.Lookup(state, terminal)
}

func (g *grammarImpl) GoTo(state int, lhs int) (int, error) {
	return g.g.Syntactic.GoTo.Lookup(state, lhs)
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return g.g.Syntactic.AlternativeSymbolCounts[prod]
}

func (g *grammarImpl) TerminalCount() int {
	return g.g.Syntactic.TerminalCount
}

func (g *grammarImpl) LHS(prod int) int {
	return g.g.Syntactic.LHSSymbols[prod]
}

func (g *grammarImpl) EOF() int {
	return g.g.Syntactic.EOFSymbol
}

func (g *grammarImpl) Terminal(terminal int) string {
	return g.g.Syntactic.Terminals[terminal]
}

func (g *grammarImpl) NonTerminal(nonTerminal int) string {
	return g.g.Syntactic.NonTerminals[nonTerminal]
}

func (g *grammarImpl) Production(prod int) *spec.ProductionInfo {
	if prod < 0 || prod >= len(g.g.Productions) {
		return nil
	}
	return g.g.Productions[prod]
}
