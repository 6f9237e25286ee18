// Package grammar defines the compiled form of an engine: the lexer's DFA,
// the LR parsing tables, and the production metadata the reduction bridge
// needs.
package grammar

import (
	mlspec "github.com/nihei9/maleeni/spec"
	"github.com/nihei9/rulegen/compressor"
)

type CompiledGrammar struct {
	Name     string `json:"name"`
	Digest   string `json:"digest"`
	Start    string `json:"start"`
	Location bool   `json:"location"`

	Lexical     *LexicalSpec      `json:"lexical"`
	Syntactic   *SyntacticSpec    `json:"syntactic"`
	Productions []*ProductionInfo `json:"productions"`
}

type LexicalSpec struct {
	Maleeni *mlspec.CompiledLexSpec `json:"maleeni"`

	// The following slices are indexed by lexer kind ID.
	KindToTerminal []int    `json:"kind_to_terminal"`
	Skip           []int    `json:"skip"`
	DiscardActions []string `json:"discard_actions"`
	Patterns       []string `json:"patterns"`
}

type SyntacticSpec struct {
	Action                  *compressor.Table `json:"action"`
	GoTo                    *compressor.Table `json:"goto"`
	StateCount              int               `json:"state_count"`
	InitialState            int               `json:"initial_state"`
	StartProduction         int               `json:"start_production"`
	LHSSymbols              []int             `json:"lhs_symbols"`
	AlternativeSymbolCounts []int             `json:"alternative_symbol_counts"`
	Terminals               []string          `json:"terminals"`
	TerminalCount           int               `json:"terminal_count"`
	NonTerminals            []string          `json:"non_terminals"`
	NonTerminalCount        int               `json:"non_terminal_count"`
	EOFSymbol               int               `json:"eof_symbol"`
}

// ProductionInfo ties a production number to the alternative a handler
// declared. Productions is indexed by production number; the entries of the
// nil production and of the augmented start production are nil.
type ProductionInfo struct {
	Number      int      `json:"number"`
	Nonterminal string   `json:"nonterminal"`
	Alternative int      `json:"alternative"`
	Symbols     []string `json:"symbols"`
}
