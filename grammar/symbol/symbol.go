// Package symbol numbers the terminals and nonterminals of a grammar.
package symbol

import (
	"fmt"
	"sort"
)

// SymbolNum is the index of a symbol among the symbols of its kind. It
// indexes the columns of the parsing tables.
type SymbolNum uint16

func (n SymbolNum) Int() int {
	return int(n)
}

// Symbol packs a kind bit, a start-or-EOF bit, and a number into 16 bits.
//
//	1000 0000 0000 0000  terminal
//	0100 0000 0000 0000  augmented start (nonterminal) or EOF (terminal)
//	0011 1111 1111 1111  number
type Symbol uint16

const (
	maskTerminal   = uint16(0x8000)
	maskStartOrEOF = uint16(0x4000)
	maskNumber     = uint16(0x3fff)

	SymbolNil   = Symbol(0)
	symbolStart = Symbol(maskStartOrEOF | 1)
	SymbolEOF   = Symbol(maskTerminal | maskStartOrEOF | 1)

	// NameEOF contains `<` and `>` so that it never collides with a user
	// symbol.
	NameEOF = "<eof>"

	numMin = SymbolNum(2)
	numMax = SymbolNum(maskNumber)
)

func newSymbol(terminal bool, num SymbolNum) (Symbol, error) {
	if num > numMax {
		return SymbolNil, fmt.Errorf("too many symbols; limit: %v, passed: %v", numMax, num)
	}
	if terminal {
		return Symbol(maskTerminal | uint16(num)), nil
	}
	return Symbol(uint16(num)), nil
}

func (s Symbol) Num() SymbolNum {
	return SymbolNum(uint16(s) & maskNumber)
}

func (s Symbol) IsNil() bool {
	return s.Num() == 0
}

func (s Symbol) IsStart() bool {
	return !s.IsNil() && uint16(s)&maskTerminal == 0 && uint16(s)&maskStartOrEOF != 0
}

func (s Symbol) IsEOF() bool {
	return !s.IsNil() && uint16(s)&maskTerminal != 0 && uint16(s)&maskStartOrEOF != 0
}

func (s Symbol) IsTerminal() bool {
	return !s.IsNil() && uint16(s)&maskTerminal != 0
}

func (s Symbol) IsNonTerminal() bool {
	return !s.IsNil() && uint16(s)&maskTerminal == 0
}

// Byte returns the big-endian encoding of the symbol.
func (s Symbol) Byte() []byte {
	return []byte{byte(uint16(s) >> 8), byte(uint16(s))}
}

func (s Symbol) String() string {
	switch {
	case s.IsNil():
		return "nil"
	case s.IsStart():
		return fmt.Sprintf("s%v", s.Num())
	case s.IsEOF():
		return fmt.Sprintf("e%v", s.Num())
	case s.IsTerminal():
		return fmt.Sprintf("t%v", s.Num())
	}
	return fmt.Sprintf("n%v", s.Num())
}

// SymbolTable maps symbol texts to symbols. Terminal number 1 is always EOF
// and nonterminal number 1 is always the augmented start symbol.
type SymbolTable struct {
	text2Sym     map[string]Symbol
	sym2Text     map[Symbol]string
	termTexts    []string
	nonTermTexts []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		text2Sym: map[string]Symbol{
			NameEOF: SymbolEOF,
		},
		sym2Text: map[Symbol]string{
			SymbolEOF: NameEOF,
		},
		termTexts:    []string{"", NameEOF},
		nonTermTexts: []string{"", ""},
	}
}

func (t *SymbolTable) RegisterStartSymbol(text string) (Symbol, error) {
	if sym, ok := t.text2Sym[text]; ok && sym != symbolStart {
		return SymbolNil, fmt.Errorf("the start symbol %v is already registered as %v", text, sym)
	}
	t.text2Sym[text] = symbolStart
	t.sym2Text[symbolStart] = text
	t.nonTermTexts[symbolStart.Num()] = text
	return symbolStart, nil
}

func (t *SymbolTable) RegisterNonTerminalSymbol(text string) (Symbol, error) {
	return t.register(text, false)
}

func (t *SymbolTable) RegisterTerminalSymbol(text string) (Symbol, error) {
	return t.register(text, true)
}

func (t *SymbolTable) register(text string, terminal bool) (Symbol, error) {
	if sym, ok := t.text2Sym[text]; ok {
		if sym.IsTerminal() != terminal {
			return SymbolNil, fmt.Errorf("%v is registered as both a terminal and a nonterminal", text)
		}
		return sym, nil
	}

	texts := &t.nonTermTexts
	if terminal {
		texts = &t.termTexts
	}
	sym, err := newSymbol(terminal, SymbolNum(len(*texts)))
	if err != nil {
		return SymbolNil, err
	}
	*texts = append(*texts, text)
	t.text2Sym[text] = sym
	t.sym2Text[sym] = text
	return sym, nil
}

func (t *SymbolTable) ToSymbol(text string) (Symbol, bool) {
	sym, ok := t.text2Sym[text]
	return sym, ok
}

func (t *SymbolTable) ToText(sym Symbol) (string, bool) {
	text, ok := t.sym2Text[sym]
	return text, ok
}

// TerminalSymbols returns the terminals, EOF included, in number order.
func (t *SymbolTable) TerminalSymbols() []Symbol {
	return t.symbols(func(s Symbol) bool { return s.IsTerminal() })
}

// NonTerminalSymbols returns the nonterminals, the augmented start included,
// in number order.
func (t *SymbolTable) NonTerminalSymbols() []Symbol {
	return t.symbols(func(s Symbol) bool { return s.IsNonTerminal() })
}

func (t *SymbolTable) symbols(pred func(Symbol) bool) []Symbol {
	var syms []Symbol
	for sym := range t.sym2Text {
		if pred(sym) {
			syms = append(syms, sym)
		}
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Num() < syms[j].Num()
	})
	return syms
}

// TerminalTexts is indexed by terminal number. Index 0 is empty.
func (t *SymbolTable) TerminalTexts() ([]string, error) {
	if len(t.termTexts) <= int(numMin) {
		return nil, fmt.Errorf("the symbol table has no terminals")
	}
	return t.termTexts, nil
}

// NonTerminalTexts is indexed by nonterminal number. Index 0 is empty.
func (t *SymbolTable) NonTerminalTexts() ([]string, error) {
	if len(t.nonTermTexts) <= int(numMin) || t.nonTermTexts[symbolStart.Num()] == "" {
		return nil, fmt.Errorf("the symbol table has no nonterminals or no start symbol")
	}
	return t.nonTermTexts, nil
}
