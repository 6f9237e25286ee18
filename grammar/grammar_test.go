package grammar

import (
	"errors"
	"testing"

	"github.com/nihei9/rulegen/grammar/symbol"
	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/synth"
)

func nop(nonterminal string, alt int, names []string, values []any) (any, error) {
	return nil, nil
}

func genGrammar(t *testing.T, tokens string, precs []*rule.PrecedenceGroup, frags ...string) *Grammar {
	t.Helper()

	hs := make([]*rule.Handler, len(frags))
	for i, f := range frags {
		hs[i] = &rule.Handler{
			Rules: f,
			Start: i == 0,
			Func:  nop,
		}
	}
	rs, err := rule.Extract(&rule.Definition{
		Name:        "test",
		Tokens:      tokens,
		Precedences: precs,
		Handlers:    hs,
	})
	if err != nil {
		t.Fatal(err)
	}
	s, err := synth.Synthesize(rs)
	if err != nil {
		t.Fatal(err)
	}
	gram, err := NewGrammar(s)
	if err != nil {
		t.Fatal(err)
	}
	return gram
}

type testSymbolGenerator func(text string) symbol.Symbol

func newTestSymbolGenerator(t *testing.T, symTab *symbol.SymbolTable) testSymbolGenerator {
	return func(text string) symbol.Symbol {
		t.Helper()

		sym, ok := symTab.ToSymbol(text)
		if !ok {
			t.Fatalf("symbol was not found: %v", text)
		}
		return sym
	}
}

// findProduction returns the number of the production lhs → rhs.
func findProduction(t *testing.T, gram *Grammar, lhs string, rhs ...string) productionNum {
	t.Helper()

	genSym := newTestSymbolGenerator(t, gram.symbolTable)
	ps, ok := gram.productionSet.findByLHS(genSym(lhs))
	if !ok {
		t.Fatalf("%v has no production", lhs)
	}
	for _, p := range ps {
		if len(p.rhs) != len(rhs) {
			continue
		}
		match := true
		for i, sym := range p.rhs {
			if sym != genSym(rhs[i]) {
				match = false
				break
			}
		}
		if match {
			return p.num
		}
	}
	t.Fatalf("production was not found: %v → %v", lhs, rhs)
	return productionNumNil
}

const exprTokens = `
[0-9]+ = NUM
\+     = PLUS
\*     = TIMES
\(     = LPAREN
\)     = RPAREN
[ ]+   = _
`

const sumTokens = `
[0-9]+ = NUM
\+     = PLUS
[ ]+   = _
`

const opTokens = `
[0-9]+ = NUM
\+     = PLUS
\*     = TIMES
[ ]+   = _
`

func TestGenFirst(t *testing.T) {
	tests := []struct {
		caption string
		tokens  string
		frags   []string
		first   map[string][]string
		empty   []string
	}{
		{
			caption: "productions contain only non-empty productions",
			tokens:  exprTokens,
			frags: []string{
				"expr\n: expr PLUS term\n| term\n",
				"term\n: term TIMES factor\n| factor\n",
				"factor\n: LPAREN expr RPAREN\n| NUM\n",
			},
			first: map[string][]string{
				"expr":   {"LPAREN", "NUM"},
				"term":   {"LPAREN", "NUM"},
				"factor": {"LPAREN", "NUM"},
			},
		},
		{
			caption: "a nullable nonterminal passes FIRST of what follows it",
			tokens: `
a = A
b = B
`,
			frags: []string{
				"s\n: opt B\n",
				"opt\n: A\n|\n",
			},
			first: map[string][]string{
				"s":   {"A", "B"},
				"opt": {"A"},
			},
			empty: []string{"opt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			gram := genGrammar(t, tt.tokens, nil, tt.frags...)
			fst, err := genFirstSet(gram.productionSet)
			if err != nil {
				t.Fatal(err)
			}
			genSym := newTestSymbolGenerator(t, gram.symbolTable)
			for lhs, syms := range tt.first {
				e := fst.set[genSym(lhs)]
				if e == nil {
					t.Fatalf("FIRST(%v) was not found", lhs)
				}
				if len(e.symbols) != len(syms) {
					t.Fatalf("unexpected FIRST(%v); want: %v, got: %v", lhs, syms, e.symbols)
				}
				for _, s := range syms {
					if _, ok := e.symbols[genSym(s)]; !ok {
						t.Fatalf("FIRST(%v) lacks %v", lhs, s)
					}
				}
				nullable := false
				for _, n := range tt.empty {
					if n == lhs {
						nullable = true
					}
				}
				if e.empty != nullable {
					t.Fatalf("unexpected nullability of %v; want: %v, got: %v", lhs, nullable, e.empty)
				}
			}
		})
	}
}

// lrValueTokens and the fragments below form the grammar that belongs to
// LALR(1) but not to SLR(1).
const lrValueTokens = `
\= = EQ
\* = REF
[a-z]+ = ID
`

var lrValueFrags = []string{
	"s\n: l EQ r\n| r\n",
	"l\n: REF r\n| ID\n",
	"r\n: l\n",
}

func TestGenLALR1Automaton(t *testing.T) {
	gram := genGrammar(t, lrValueTokens, nil, lrValueFrags...)

	fst, err := genFirstSet(gram.productionSet)
	if err != nil {
		t.Fatal(err)
	}
	lr0, err := genLR0Automaton(gram.productionSet, gram.augmentedStartSymbol)
	if err != nil {
		t.Fatal(err)
	}
	automaton, err := genLALR1Automaton(lr0, gram.productionSet, fst)
	if err != nil {
		t.Fatal(err)
	}

	if len(automaton.ordered) != 10 {
		t.Fatalf("unexpected state count; want: 10, got: %v", len(automaton.ordered))
	}
	if automaton.ordered[0].num != stateNumInitial || automaton.ordered[0].id != automaton.initialState {
		t.Fatalf("state 0 must be the initial state")
	}

	genSym := newTestSymbolGenerator(t, gram.symbolTable)
	sLEqR := findProduction(t, gram, "s", "l", "EQ", "r")
	rL := findProduction(t, gram, "r", "l")
	lID := findProduction(t, gram, "l", "ID")

	tests := []struct {
		caption   string
		item      itemKey
		with      *itemKey
		lookAhead []string
	}{
		{
			caption:   "r → l・ after s' → ・s sees only EOF",
			item:      itemKey{prod: rL, dot: 1},
			with:      &itemKey{prod: sLEqR, dot: 1},
			lookAhead: []string{symbol.NameEOF},
		},
		{
			caption:   "l → ID・ sees EQ and EOF",
			item:      itemKey{prod: lID, dot: 1},
			lookAhead: []string{"EQ", symbol.NameEOF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			var found *lrItem
			for _, s := range automaton.ordered {
				item, ok := s.item[tt.item]
				if !ok {
					continue
				}
				if tt.with != nil {
					if _, ok := s.item[*tt.with]; !ok {
						continue
					}
				}
				found = item
				break
			}
			if found == nil {
				t.Fatalf("item was not found: %v", tt.item)
			}
			if len(found.lookAhead) != len(tt.lookAhead) {
				t.Fatalf("unexpected look-ahead symbols; want: %v, got: %v", tt.lookAhead, found.sortedLookAhead())
			}
			for _, a := range tt.lookAhead {
				if _, ok := found.lookAhead[genSym(a)]; !ok {
					t.Fatalf("look-ahead symbols lack %v", a)
				}
			}
		})
	}
}

func TestCompile(t *testing.T) {
	gram := genGrammar(t, lrValueTokens, nil, lrValueFrags...)
	cg, report, err := Compile(gram)
	if err != nil {
		t.Fatal(err)
	}
	if report == nil || len(report.States) != cg.Syntactic.StateCount {
		t.Fatalf("the report must describe every state")
	}

	if cg.Syntactic.Terminals[cg.Syntactic.EOFSymbol] != symbol.NameEOF {
		t.Fatalf("unexpected EOF terminal: %v", cg.Syntactic.Terminals[cg.Syntactic.EOFSymbol])
	}
	if cg.Syntactic.NonTerminals[cg.Syntactic.LHSSymbols[cg.Syntactic.StartProduction]] != "s'" {
		t.Fatalf("unexpected augmented start symbol: %v", cg.Syntactic.NonTerminals)
	}

	for _, p := range []struct {
		lhs   string
		alt   int
		count int
	}{
		{lhs: "s", alt: 0, count: 3},
		{lhs: "s", alt: 1, count: 1},
		{lhs: "l", alt: 0, count: 2},
		{lhs: "l", alt: 1, count: 1},
		{lhs: "r", alt: 0, count: 1},
	} {
		found := false
		for num, info := range cg.Productions {
			if info == nil || info.Nonterminal != p.lhs || info.Alternative != p.alt {
				continue
			}
			found = true
			if cg.Syntactic.AlternativeSymbolCounts[num] != p.count || len(info.Symbols) != p.count {
				t.Fatalf("unexpected symbol count of %v #%v: %v", p.lhs, p.alt, cg.Syntactic.AlternativeSymbolCounts[num])
			}
		}
		if !found {
			t.Fatalf("production %v #%v was not found", p.lhs, p.alt)
		}
	}

	var kinds int
	for i, k := range cg.Lexical.Maleeni.KindNames {
		if i == 0 {
			continue
		}
		kinds++
		term := cg.Lexical.KindToTerminal[i]
		if term == 0 || cg.Lexical.Skip[i] != 0 {
			t.Fatalf("kind %v must map to a terminal", k)
		}
	}
	if kinds != 3 {
		t.Fatalf("unexpected kind count: %v", kinds)
	}

	id := newTestSymbolGenerator(t, gram.symbolTable)("ID").Num().Int()
	act, err := cg.Syntactic.Action.Lookup(cg.Syntactic.InitialState, id)
	if err != nil {
		t.Fatal(err)
	}
	if act >= 0 {
		t.Fatalf("the initial state must shift ID; got: %v", act)
	}
}

func TestCompile_CompressionLevels(t *testing.T) {
	var tables [][]int
	for lv := 0; lv <= 2; lv++ {
		gram := genGrammar(t, exprTokens, []*rule.PrecedenceGroup{
			{Assoc: rule.AssocLeft, Tokens: []string{"PLUS"}},
			{Assoc: rule.AssocLeft, Tokens: []string{"TIMES"}},
		}, "expr\n: expr PLUS expr\n| expr TIMES expr\n| LPAREN expr RPAREN\n| NUM\n")
		cg, _, err := Compile(gram, CompressionLevel(lv))
		if err != nil {
			t.Fatal(err)
		}
		if cg.Syntactic.Action.Level != lv {
			t.Fatalf("unexpected level: %v", cg.Syntactic.Action.Level)
		}
		var entries []int
		for s := 0; s < cg.Syntactic.StateCount; s++ {
			for term := 0; term < cg.Syntactic.TerminalCount; term++ {
				e, err := cg.Syntactic.Action.Lookup(s, term)
				if err != nil {
					t.Fatal(err)
				}
				entries = append(entries, e)
			}
		}
		tables = append(tables, entries)
	}
	for lv := 1; lv < len(tables); lv++ {
		if len(tables[lv]) != len(tables[0]) {
			t.Fatalf("level %v changes the table size", lv)
		}
		for i := range tables[0] {
			if tables[lv][i] != tables[0][i] {
				t.Fatalf("level %v changes entry #%v; want: %v, got: %v", lv, i, tables[0][i], tables[lv][i])
			}
		}
	}
}

func TestCompile_Conflicts(t *testing.T) {
	tests := []struct {
		caption string
		tokens  string
		precs   []*rule.PrecedenceGroup
		frags   []string
		kind    string
	}{
		{
			caption: "an ambiguous binary operator without precedence",
			tokens:  sumTokens,
			frags:   []string{"expr\n: expr PLUS expr\n| NUM\n"},
			kind:    "shift/reduce",
		},
		{
			caption: "two nonterminals deriving the same token",
			tokens: `
x = X
`,
			frags: []string{
				"s\n: a\n| b\n",
				"a\n: X\n",
				"b\n: X\n",
			},
			kind: "reduce/reduce",
		},
		{
			caption: "precedence of an unrelated token does not decide a conflict",
			tokens:  opTokens,
			precs: []*rule.PrecedenceGroup{
				{Assoc: rule.AssocLeft, Tokens: []string{"TIMES"}},
			},
			frags: []string{"expr\n: expr PLUS expr\n| expr TIMES NUM\n| NUM\n"},
			kind:  "shift/reduce",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			gram := genGrammar(t, tt.tokens, tt.precs, tt.frags...)
			cg, report, err := Compile(gram)
			if err == nil {
				t.Fatal("an error must occur")
			}
			if cg != nil {
				t.Fatal("a grammar with conflicts must not be compiled")
			}
			if report == nil {
				t.Fatal("a report must be generated even when conflicts occur")
			}
			var conErrs ConflictErrors
			if !errors.As(err, &conErrs) {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, c := range conErrs {
				if c.Kind != tt.kind {
					t.Fatalf("unexpected conflict kind; want: %v, got: %v", tt.kind, c.Kind)
				}
			}
			var conErr *ConflictError
			if !errors.As(err, &conErr) || conErr != conErrs[0] {
				t.Fatalf("the first conflict must be reachable through the error chain: %v", err)
			}
		})
	}
}

func TestCompile_PrecedenceResolvesConflicts(t *testing.T) {
	gram := genGrammar(t, opTokens, []*rule.PrecedenceGroup{
		{Assoc: rule.AssocLeft, Tokens: []string{"PLUS"}},
		{Assoc: rule.AssocRight, Tokens: []string{"TIMES"}},
	}, "expr\n: expr PLUS expr\n| expr TIMES expr\n| NUM\n")
	_, report, err := Compile(gram)
	if err != nil {
		t.Fatal(err)
	}

	plusProd := findProduction(t, gram, "expr", "expr", "PLUS", "expr")
	timesProd := findProduction(t, gram, "expr", "expr", "TIMES", "expr")
	plus, times := plusProd.Int(), timesProd.Int()
	if report.Productions[plus].Precedence != 1 || report.Productions[plus].Associativity != "l" {
		t.Fatalf("unexpected precedence of the PLUS production: %+v", report.Productions[plus])
	}
	if report.Productions[times].Precedence != 2 || report.Productions[times].Associativity != "r" {
		t.Fatalf("unexpected precedence of the TIMES production: %+v", report.Productions[times])
	}

	genSym := newTestSymbolGenerator(t, gram.symbolTable)
	plusSym := genSym("PLUS").Num().Int()
	timesSym := genSym("TIMES").Num().Int()

	var checked int
	for _, s := range report.States {
		for _, c := range s.SRConflict {
			if c.ResolvedBy != ResolvedByPrec.Int() && c.ResolvedBy != ResolvedByAssoc.Int() {
				t.Fatalf("a conflict is left unresolved: %+v", c)
			}
			switch {
			case c.Production == plus && c.Symbol == plusSym:
				// left associative
				if c.AdoptedProduction == nil || *c.AdoptedProduction != plus {
					t.Fatalf("PLUS must reduce on PLUS: %+v", c)
				}
			case c.Production == plus && c.Symbol == timesSym:
				// TIMES binds tighter
				if c.AdoptedState == nil {
					t.Fatalf("PLUS must shift TIMES: %+v", c)
				}
			case c.Production == times && c.Symbol == timesSym:
				// right associative
				if c.AdoptedState == nil {
					t.Fatalf("TIMES must shift TIMES: %+v", c)
				}
			case c.Production == times && c.Symbol == plusSym:
				if c.AdoptedProduction == nil || *c.AdoptedProduction != times {
					t.Fatalf("TIMES must reduce on PLUS: %+v", c)
				}
			}
			checked++
		}
	}
	if checked != 4 {
		t.Fatalf("unexpected conflict count: %v", checked)
	}
}

func TestCompile_NonAssoc(t *testing.T) {
	gram := genGrammar(t, `
<      = LT
[0-9]+ = NUM
`, []*rule.PrecedenceGroup{
		{Assoc: rule.AssocNonAssoc, Tokens: []string{"LT"}},
	}, "expr\n: expr LT expr\n| NUM\n")
	_, report, err := Compile(gram)
	if err != nil {
		t.Fatal(err)
	}

	lt := findProduction(t, gram, "expr", "expr", "LT", "expr")
	ltSym := newTestSymbolGenerator(t, gram.symbolTable)("LT").Num().Int()
	found := false
	for _, s := range report.States {
		reducible := false
		for _, item := range s.Kernel {
			if item.Production == lt.Int() && item.Dot == 3 {
				reducible = true
			}
		}
		if !reducible {
			continue
		}
		found = true
		for _, sh := range s.Shift {
			if sh.Symbol == ltSym {
				t.Fatalf("a nonassociative operator must not shift itself")
			}
		}
		for _, r := range s.Reduce {
			for _, a := range r.LookAhead {
				if a == ltSym {
					t.Fatalf("a nonassociative operator must not reduce on itself")
				}
			}
		}
	}
	if !found {
		t.Fatal("the state reducing `expr LT expr` was not found")
	}
}

func TestCompile_EmptyProduction(t *testing.T) {
	gram := genGrammar(t, `
[a-z]+ = ITEM
, = COMMA
`, nil,
		"list\n: list COMMA ITEM\n| ITEM\n|\n",
	)
	cg, _, err := Compile(gram)
	if err != nil {
		t.Fatal(err)
	}
	empty := findProduction(t, gram, "list")
	if cg.Syntactic.AlternativeSymbolCounts[empty] != 0 {
		t.Fatalf("an empty alternative must have no symbols")
	}
	if cg.Productions[empty].Alternative != 2 {
		t.Fatalf("unexpected alternative index: %v", cg.Productions[empty].Alternative)
	}
}

func TestCompile_PatternError(t *testing.T) {
	gram := genGrammar(t, `
(abc = ID
`, nil, "s\n: ID\n")
	_, _, err := Compile(gram)
	if err == nil {
		t.Fatal("an error must occur")
	}
	var pErr *PatternError
	if !errors.As(err, &pErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	if pErr.Token != "ID" || pErr.Pattern != "(abc" {
		t.Fatalf("unexpected pattern error: %+v", pErr)
	}
}
