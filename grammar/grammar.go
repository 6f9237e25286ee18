// Package grammar builds the LALR(1) parsing tables and the lexer DFA of an
// engine from a synthesized specification.
package grammar

import (
	"fmt"
	"io"
	"strings"

	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
	"github.com/nihei9/rulegen/compressor"
	"github.com/nihei9/rulegen/grammar/symbol"
	"github.com/nihei9/rulegen/rule"
	spec "github.com/nihei9/rulegen/spec/grammar"
	"github.com/nihei9/rulegen/synth"
)

// augmentedStartSuffix cannot appear in a symbol name of a rule set, so the
// augmented start symbol never collides with a user symbol.
const augmentedStartSuffix = "'"

type Grammar struct {
	name     string
	digest   string
	start    string
	location bool

	lexSpec     *mlspec.LexSpec
	lexEntries  map[string]*synth.LexEntry
	precedences []*rule.PrecedenceGroup

	symbolTable          *symbol.SymbolTable
	productionSet        *productionSet
	augmentedStartSymbol symbol.Symbol
	precAndAssoc         *precAndAssoc
	prodInfo             map[productionNum]*spec.ProductionInfo
}

// NewGrammar registers the symbols of a synthesized specification and numbers
// its productions. Terminals are numbered in token name order and
// nonterminals in the order their handlers were declared.
func NewGrammar(s *synth.Spec) (*Grammar, error) {
	symTab := symbol.NewSymbolTable()
	startSym, err := symTab.RegisterStartSymbol(s.Grammar.Start + augmentedStartSuffix)
	if err != nil {
		return nil, err
	}
	for _, tok := range s.Grammar.Tokens {
		if _, err := symTab.RegisterTerminalSymbol(tok); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Grammar.Productions {
		if _, err := symTab.RegisterNonTerminalSymbol(p.Nonterminal); err != nil {
			return nil, err
		}
	}

	userStart, ok := symTab.ToSymbol(s.Grammar.Start)
	if !ok || !userStart.IsNonTerminal() {
		return nil, fmt.Errorf("the start symbol %v has no production", s.Grammar.Start)
	}

	prods := newProductionSet()
	{
		p, err := newProduction(startSym, []symbol.Symbol{userStart}, -1)
		if err != nil {
			return nil, err
		}
		prods.append(p)
	}

	prodInfo := map[productionNum]*spec.ProductionInfo{}
	for _, p := range s.Grammar.Productions {
		lhs, _ := symTab.ToSymbol(p.Nonterminal)
		for i, alt := range p.Alternatives {
			rhs := make([]symbol.Symbol, len(alt.Symbols))
			for j, text := range alt.Symbols {
				sym, ok := symTab.ToSymbol(text)
				if !ok {
					return nil, fmt.Errorf("%v: undefined symbol: %v", p.Nonterminal, text)
				}
				rhs[j] = sym
			}
			prod, err := newProduction(lhs, rhs, i)
			if err != nil {
				return nil, err
			}
			if !prods.append(prod) {
				return nil, fmt.Errorf("%v: duplicate alternative: %v", p.Nonterminal, strings.Join(alt.Symbols, " "))
			}
			syms := make([]string, len(alt.Symbols))
			copy(syms, alt.Symbols)
			prodInfo[prod.num] = &spec.ProductionInfo{
				Number:      prod.num.Int(),
				Nonterminal: p.Nonterminal,
				Alternative: i,
				Symbols:     syms,
			}
		}
	}

	pa, err := genPrecAndAssoc(s.Grammar.Precedences, symTab, prods)
	if err != nil {
		return nil, err
	}

	entries := map[string]*synth.LexEntry{}
	for _, e := range s.Lexer.Entries {
		entries[e.Kind] = e
	}

	return &Grammar{
		name:                 s.Name,
		digest:               s.Digest,
		start:                s.Grammar.Start,
		location:             s.Lexer.Location,
		lexSpec:              s.Lexer.LexSpec(),
		lexEntries:           entries,
		precedences:          s.Grammar.Precedences,
		symbolTable:          symTab,
		productionSet:        prods,
		augmentedStartSymbol: startSym,
		precAndAssoc:         pa,
		prodInfo:             prodInfo,
	}, nil
}

type compileConfig struct {
	compressionLevel int
}

type CompileOption func(config *compileConfig)

// CompressionLevel selects how the parsing tables are stored. See the
// compressor package for the levels.
func CompressionLevel(lv int) CompileOption {
	return func(config *compileConfig) {
		config.compressionLevel = lv
	}
}

// Compile builds the lexer DFA and the parsing tables. The report is returned
// whenever the automaton could be built, including when unresolved conflicts
// fail the compilation with ConflictErrors.
func Compile(gram *Grammar, opts ...CompileOption) (*spec.CompiledGrammar, *spec.Report, error) {
	config := &compileConfig{
		compressionLevel: compressor.LevelMax,
	}
	for _, opt := range opts {
		opt(config)
	}

	lexSpec, err, cErrs := mlcompiler.Compile(gram.lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			return nil, nil, gram.patternErrors(cErrs)
		}
		return nil, nil, err
	}

	lexical, err := gram.genLexicalSpec(lexSpec)
	if err != nil {
		return nil, nil, err
	}

	terms, err := gram.symbolTable.TerminalTexts()
	if err != nil {
		return nil, nil, err
	}
	nonTerms, err := gram.symbolTable.NonTerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	firstSet, err := genFirstSet(gram.productionSet)
	if err != nil {
		return nil, nil, err
	}
	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol)
	if err != nil {
		return nil, nil, err
	}
	lalr1, err := genLALR1Automaton(lr0, gram.productionSet, firstSet)
	if err != nil {
		return nil, nil, err
	}

	b := &lrTableBuilder{
		automaton:    lalr1.lr0Automaton,
		prods:        gram.productionSet,
		termCount:    len(terms),
		nonTermCount: len(nonTerms),
		symTab:       gram.symbolTable,
		precAndAssoc: gram.precAndAssoc,
	}
	tab, err := b.build()
	if err != nil {
		return nil, nil, err
	}

	patterns := map[string][]string{}
	for _, e := range gram.lexSpec.Entries {
		le := gram.lexEntries[e.Kind.String()]
		if le == nil || le.Discard {
			continue
		}
		patterns[le.Token] = append(patterns[le.Token], le.Source)
	}
	report, err := b.genReport(gram.name, tab, patterns)
	if err != nil {
		return nil, nil, err
	}

	if errs := b.conflictErrors(); len(errs) > 0 {
		return nil, report, errs
	}

	action, err := genTable(config.compressionLevel, tab.actionTable, tab.terminalCount)
	if err != nil {
		return nil, nil, err
	}
	goTo, err := genTable(config.compressionLevel, tab.goToTable, tab.nonTerminalCount)
	if err != nil {
		return nil, nil, err
	}

	prodCount := gram.productionSet.count()
	lhsSyms := make([]int, prodCount)
	altSymCounts := make([]int, prodCount)
	prodInfo := make([]*spec.ProductionInfo, prodCount)
	for _, p := range gram.productionSet.all() {
		lhsSyms[p.num] = p.lhs.Num().Int()
		altSymCounts[p.num] = len(p.rhs)
		prodInfo[p.num] = gram.prodInfo[p.num]
	}

	return &spec.CompiledGrammar{
		Name:     gram.name,
		Digest:   gram.digest,
		Start:    gram.start,
		Location: gram.location,
		Lexical:  lexical,
		Syntactic: &spec.SyntacticSpec{
			Action:                  action,
			GoTo:                    goTo,
			StateCount:              tab.stateCount,
			InitialState:            tab.InitialState.Int(),
			StartProduction:         productionNumStart.Int(),
			LHSSymbols:              lhsSyms,
			AlternativeSymbolCounts: altSymCounts,
			Terminals:               terms,
			TerminalCount:           tab.terminalCount,
			NonTerminals:            nonTerms,
			NonTerminalCount:        tab.nonTerminalCount,
			EOFSymbol:               symbol.SymbolEOF.Num().Int(),
		},
		Productions: prodInfo,
	}, report, nil
}

// genLexicalSpec maps each lexer kind to a terminal, or marks it skipped when
// the rule discards its match.
func (gram *Grammar) genLexicalSpec(lexSpec *mlspec.CompiledLexSpec) (*spec.LexicalSpec, error) {
	kind2Term := make([]int, len(lexSpec.KindNames))
	skip := make([]int, len(lexSpec.KindNames))
	discards := make([]string, len(lexSpec.KindNames))
	patterns := make([]string, len(lexSpec.KindNames))
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kind2Term[mlspec.LexKindIDNil] = symbol.SymbolNil.Num().Int()
			continue
		}

		e, ok := gram.lexEntries[k.String()]
		if !ok {
			return nil, fmt.Errorf("lexer kind %v has no token rule", k)
		}
		patterns[i] = e.Source
		if e.Discard {
			skip[i] = 1
			discards[i] = e.DiscardName
			continue
		}

		sym, ok := gram.symbolTable.ToSymbol(e.Token)
		if !ok || !sym.IsTerminal() {
			return nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", e.Token)
		}
		kind2Term[i] = sym.Num().Int()
	}

	return &spec.LexicalSpec{
		Maleeni:        lexSpec,
		KindToTerminal: kind2Term,
		Skip:           skip,
		DiscardActions: discards,
		Patterns:       patterns,
	}, nil
}

func genTable[E ~int | ~uint](level int, entries []E, colCount int) (*compressor.Table, error) {
	ints := make([]int, len(entries))
	for i, e := range entries {
		ints[i] = int(e)
	}
	orig, err := compressor.NewOriginalTable(ints, colCount)
	if err != nil {
		return nil, err
	}
	tab, err := compressor.NewTable(level, 0)
	if err != nil {
		return nil, err
	}
	if err := tab.Compress(orig); err != nil {
		return nil, err
	}
	return tab, nil
}

// PatternError is a token pattern the lexer compiler rejected.
type PatternError struct {
	Row     int
	Token   string
	Pattern string
	Cause   error
	Detail  string
}

func (e *PatternError) Error() string {
	var b strings.Builder
	if e.Row > 0 {
		fmt.Fprintf(&b, "%v: ", e.Row)
	}
	fmt.Fprintf(&b, "invalid pattern %q", e.Pattern)
	if e.Token != "" {
		fmt.Fprintf(&b, " of %v", e.Token)
	}
	fmt.Fprintf(&b, ": %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}
	return b.String()
}

func (e *PatternError) Unwrap() error {
	return e.Cause
}

type PatternErrors []*PatternError

func (e PatternErrors) Error() string {
	var b strings.Builder
	for i, pe := range e {
		if i > 0 {
			fmt.Fprintf(&b, "\n")
		}
		fmt.Fprintf(&b, "%v", pe)
	}
	return b.String()
}

func (e PatternErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, pe := range e {
		errs[i] = pe
	}
	return errs
}

func (gram *Grammar) patternErrors(cErrs []*mlcompiler.CompileError) PatternErrors {
	errs := make(PatternErrors, 0, len(cErrs))
	for _, cErr := range cErrs {
		pe := &PatternError{
			Cause:  cErr.Cause,
			Detail: cErr.Detail,
		}
		if e, ok := gram.lexEntries[cErr.Kind.String()]; ok {
			pe.Row = e.Row
			pe.Token = e.Token
			pe.Pattern = e.Source
		} else {
			var b strings.Builder
			writeCompileError(&b, cErr)
			pe.Detail = b.String()
		}
		errs = append(errs, pe)
	}
	return errs
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}
