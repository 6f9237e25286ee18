package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nihei9/rulegen/grammar/symbol"
	spec "github.com/nihei9/rulegen/spec/grammar"
)

func (b *lrTableBuilder) symbolText(sym symbol.Symbol) string {
	text, ok := b.symTab.ToText(sym)
	if !ok {
		return sym.String()
	}
	return text
}

func (b *lrTableBuilder) productionText(num productionNum) string {
	p, ok := b.prods.findByNum(num)
	if !ok {
		return fmt.Sprintf("<production %v>", num)
	}
	var s strings.Builder
	fmt.Fprintf(&s, "%v →", b.symbolText(p.lhs))
	if p.isEmpty() {
		fmt.Fprintf(&s, " ε")
	}
	for _, sym := range p.rhs {
		fmt.Fprintf(&s, " %v", b.symbolText(sym))
	}
	return s.String()
}

func assocText(assoc assocType) string {
	switch assoc {
	case assocTypeLeft:
		return "l"
	case assocTypeRight:
		return "r"
	case assocTypeNonAssoc:
		return "n"
	}
	return ""
}

// genReport describes the automaton and every conflict found while building
// the table, resolved or not.
func (b *lrTableBuilder) genReport(name string, tab *ParsingTable, patterns map[string][]string) (*spec.Report, error) {
	termSyms := b.symTab.TerminalSymbols()
	terms := make([]*spec.Terminal, b.termCount)
	for _, sym := range termSyms {
		text := b.symbolText(sym)
		terms[sym.Num()] = &spec.Terminal{
			Number:        sym.Num().Int(),
			Name:          text,
			Patterns:      patterns[text],
			Precedence:    b.precAndAssoc.terminalPrecedence(sym.Num()),
			Associativity: assocText(b.precAndAssoc.terminalAssociativity(sym.Num())),
		}
	}

	nonTermSyms := b.symTab.NonTerminalSymbols()
	nonTerms := make([]*spec.NonTerminal, b.nonTermCount)
	for _, sym := range nonTermSyms {
		nonTerms[sym.Num()] = &spec.NonTerminal{
			Number: sym.Num().Int(),
			Name:   b.symbolText(sym),
		}
	}

	prods := make([]*spec.Production, b.prods.count())
	for _, p := range b.prods.all() {
		rhs := make([]int, len(p.rhs))
		for i, e := range p.rhs {
			if e.IsTerminal() {
				rhs[i] = e.Num().Int()
			} else {
				rhs[i] = e.Num().Int() * -1
			}
		}
		prods[p.num] = &spec.Production{
			Number:        p.num.Int(),
			LHS:           p.lhs.Num().Int(),
			RHS:           rhs,
			Alternative:   p.alt,
			Precedence:    b.precAndAssoc.productionPrecedence(p.num),
			Associativity: assocText(b.precAndAssoc.productionAssociativity(p.num)),
		}
	}

	srConflicts := map[stateNum][]*shiftReduceConflict{}
	rrConflicts := map[stateNum][]*reduceReduceConflict{}
	for _, con := range b.conflicts {
		switch c := con.(type) {
		case *shiftReduceConflict:
			srConflicts[c.state] = append(srConflicts[c.state], c)
		case *reduceReduceConflict:
			rrConflicts[c.state] = append(rrConflicts[c.state], c)
		}
	}

	states := make([]*spec.State, len(b.automaton.ordered))
	for _, s := range b.automaton.ordered {
		kernel := make([]*spec.Item, len(s.items))
		for i, item := range s.items {
			kernel[i] = &spec.Item{
				Production: item.prod.num.Int(),
				Dot:        item.dot,
			}
		}

		var shift []*spec.Transition
		var reduce []*spec.Reduce
		reduceByProd := map[int]*spec.Reduce{}
		for _, t := range termSyms {
			act, next, prod := tab.getAction(s.num, t.Num())
			switch act {
			case ActionTypeShift:
				shift = append(shift, &spec.Transition{
					Symbol: t.Num().Int(),
					State:  next.Int(),
				})
			case ActionTypeReduce:
				if r, ok := reduceByProd[prod.Int()]; ok {
					r.LookAhead = append(r.LookAhead, t.Num().Int())
					continue
				}
				r := &spec.Reduce{
					LookAhead:  []int{t.Num().Int()},
					Production: prod.Int(),
				}
				reduceByProd[prod.Int()] = r
				reduce = append(reduce, r)
			}
		}
		sort.Slice(reduce, func(i, j int) bool {
			return reduce[i].Production < reduce[j].Production
		})

		var goTo []*spec.Transition
		for _, n := range nonTermSyms {
			if next, ok := tab.getGoTo(s.num, n.Num()); ok {
				goTo = append(goTo, &spec.Transition{
					Symbol: n.Num().Int(),
					State:  next.Int(),
				})
			}
		}

		sr := []*spec.SRConflict{}
		for _, c := range srConflicts[s.num] {
			con := &spec.SRConflict{
				Symbol:     c.sym.Num().Int(),
				State:      c.nextState.Int(),
				Production: c.prodNum.Int(),
				ResolvedBy: c.resolvedBy.Int(),
			}
			ty, next, p := tab.getAction(s.num, c.sym.Num())
			switch ty {
			case ActionTypeShift:
				n := next.Int()
				con.AdoptedState = &n
			case ActionTypeReduce:
				n := p.Int()
				con.AdoptedProduction = &n
			}
			sr = append(sr, con)
		}
		rr := []*spec.RRConflict{}
		for _, c := range rrConflicts[s.num] {
			_, _, p := tab.getAction(s.num, c.sym.Num())
			rr = append(rr, &spec.RRConflict{
				Symbol:            c.sym.Num().Int(),
				Production1:       c.prodNum1.Int(),
				Production2:       c.prodNum2.Int(),
				AdoptedProduction: p.Int(),
				ResolvedBy:        c.resolvedBy.Int(),
			})
		}

		states[s.num] = &spec.State{
			Number:     s.num.Int(),
			Kernel:     kernel,
			Shift:      shift,
			Reduce:     reduce,
			GoTo:       goTo,
			SRConflict: sr,
			RRConflict: rr,
		}
	}

	return &spec.Report{
		Name:         name,
		Terminals:    terms,
		NonTerminals: nonTerms,
		Productions:  prods,
		States:       states,
	}, nil
}
