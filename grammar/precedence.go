package grammar

import (
	"fmt"

	"github.com/nihei9/rulegen/grammar/symbol"
	"github.com/nihei9/rulegen/rule"
)

type assocType string

const (
	assocTypeNil      = assocType("")
	assocTypeLeft     = assocType("left")
	assocTypeRight    = assocType("right")
	assocTypeNonAssoc = assocType("nonassoc")
)

const precNil = 0

// precAndAssoc holds the precedence and associativity of terminals and
// productions. A larger precedence binds tighter.
type precAndAssoc struct {
	termPrec  map[symbol.SymbolNum]int
	termAssoc map[symbol.SymbolNum]assocType
	prodPrec  map[productionNum]int
	prodAssoc map[productionNum]assocType
}

func (pa *precAndAssoc) terminalPrecedence(sym symbol.SymbolNum) int {
	return pa.termPrec[sym]
}

func (pa *precAndAssoc) terminalAssociativity(sym symbol.SymbolNum) assocType {
	return pa.termAssoc[sym]
}

func (pa *precAndAssoc) productionPrecedence(prod productionNum) int {
	return pa.prodPrec[prod]
}

func (pa *precAndAssoc) productionAssociativity(prod productionNum) assocType {
	return pa.prodAssoc[prod]
}

// genPrecAndAssoc numbers the groups from 1 in declaration order. A
// production takes the precedence of the last terminal of its RHS.
func genPrecAndAssoc(groups []*rule.PrecedenceGroup, symTab *symbol.SymbolTable, prods *productionSet) (*precAndAssoc, error) {
	pa := &precAndAssoc{
		termPrec:  map[symbol.SymbolNum]int{},
		termAssoc: map[symbol.SymbolNum]assocType{},
		prodPrec:  map[productionNum]int{},
		prodAssoc: map[productionNum]assocType{},
	}
	for i, g := range groups {
		var assoc assocType
		switch g.Assoc {
		case rule.AssocLeft:
			assoc = assocTypeLeft
		case rule.AssocRight:
			assoc = assocTypeRight
		case rule.AssocNonAssoc:
			assoc = assocTypeNonAssoc
		default:
			return nil, fmt.Errorf("invalid associativity: %v", g.Assoc)
		}
		for _, tok := range g.Tokens {
			sym, ok := symTab.ToSymbol(tok)
			if !ok || !sym.IsTerminal() {
				return nil, fmt.Errorf("a precedence group contains an unknown terminal: %v", tok)
			}
			pa.termPrec[sym.Num()] = i + 1
			pa.termAssoc[sym.Num()] = assoc
		}
	}

	for _, prod := range prods.all() {
		for i := len(prod.rhs) - 1; i >= 0; i-- {
			sym := prod.rhs[i]
			if !sym.IsTerminal() {
				continue
			}
			if prec := pa.termPrec[sym.Num()]; prec != precNil {
				pa.prodPrec[prod.num] = prec
				pa.prodAssoc[prod.num] = pa.termAssoc[sym.Num()]
			}
			break
		}
	}

	return pa, nil
}
