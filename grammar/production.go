package grammar

import (
	"fmt"
	"strings"

	"github.com/nihei9/rulegen/grammar/symbol"
)

type productionNum uint16

const (
	productionNumNil   = productionNum(0)
	productionNumStart = productionNum(1)
	productionNumMin   = productionNum(2)
)

func (n productionNum) Int() int {
	return int(n)
}

// production is one alternative of a nonterminal. alt is the index of the
// alternative among the ones the handler declared; the augmented start
// production has alt -1.
type production struct {
	num productionNum
	lhs symbol.Symbol
	rhs []symbol.Symbol
	alt int
}

func newProduction(lhs symbol.Symbol, rhs []symbol.Symbol, alt int) (*production, error) {
	if lhs.IsNil() || !lhs.IsNonTerminal() {
		return nil, fmt.Errorf("LHS must be a nonterminal; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.IsNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}
	return &production{
		lhs: lhs,
		rhs: rhs,
		alt: alt,
	}, nil
}

func (p *production) key() string {
	var b strings.Builder
	b.Write(p.lhs.Byte())
	for _, sym := range p.rhs {
		b.Write(sym.Byte())
	}
	return b.String()
}

func (p *production) isEmpty() bool {
	return len(p.rhs) == 0
}

// productionSet numbers productions in the order they are appended. The
// augmented start production always gets productionNumStart.
type productionSet struct {
	prods     []*production
	lhs2Prods map[symbol.Symbol][]*production
	keys      map[string]*production
}

func newProductionSet() *productionSet {
	return &productionSet{
		prods:     make([]*production, productionNumMin),
		lhs2Prods: map[symbol.Symbol][]*production{},
		keys:      map[string]*production{},
	}
}

// append returns false when an identical production already exists.
func (ps *productionSet) append(prod *production) bool {
	k := prod.key()
	if _, ok := ps.keys[k]; ok {
		return false
	}

	if prod.lhs.IsStart() {
		prod.num = productionNumStart
		ps.prods[productionNumStart] = prod
	} else {
		prod.num = productionNum(len(ps.prods))
		ps.prods = append(ps.prods, prod)
	}
	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.keys[k] = prod
	return true
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if int(num) >= len(ps.prods) || ps.prods[num] == nil {
		return nil, false
	}
	return ps.prods[num], true
}

func (ps *productionSet) findByLHS(lhs symbol.Symbol) ([]*production, bool) {
	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// all returns the productions in number order.
func (ps *productionSet) all() []*production {
	prods := make([]*production, 0, len(ps.prods))
	for _, p := range ps.prods {
		if p != nil {
			prods = append(prods, p)
		}
	}
	return prods
}

// count is the number of production slots, the nil slot included.
func (ps *productionSet) count() int {
	return len(ps.prods)
}
