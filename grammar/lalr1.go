package grammar

import (
	"fmt"

	"github.com/nihei9/rulegen/grammar/symbol"
)

// propagationMarker plays the dummy look-ahead symbol '#'. A closure item
// carrying it inherits every look-ahead symbol of the kernel item the closure
// was built from.
const propagationMarker = symbol.SymbolNil

type propagation struct {
	src   *lrItem
	dests []*lrItem
}

type lalr1Automaton struct {
	*lr0Automaton
}

// genLALR1Automaton attaches look-ahead symbols to the LR(0) automaton. It
// first records look-ahead symbols generated spontaneously and the
// propagation edges between items, then propagates until nothing changes.
func genLALR1Automaton(lr0 *lr0Automaton, prods *productionSet, first *firstSet) (*lalr1Automaton, error) {
	// [S' →・S, $]
	initial := lr0.states[lr0.initialState]
	initial.items[0].addLookAhead(symbol.SymbolEOF)

	var props []*propagation
	for _, state := range lr0.ordered {
		for _, kItem := range state.items {
			closure, err := genLALR1Closure(kItem, prods, first)
			if err != nil {
				return nil, err
			}

			var dests []*lrItem
			for _, c := range closure {
				var dest *lrItem
				if c.item.reducible {
					if c.item.kernel {
						continue
					}
					dest = state.emptyProdItems[c.item.key]
					if dest == nil {
						return nil, fmt.Errorf("reducible item not found in state %v: %v", state.num, c.item.key)
					}
				} else {
					next, ok := lr0.states[state.next[c.item.dottedSymbol]]
					if !ok {
						return nil, fmt.Errorf("state %v has no transition on %v", state.num, c.item.dottedSymbol)
					}
					dest = next.item[itemKey{prod: c.item.key.prod, dot: c.item.dot + 1}]
					if dest == nil {
						return nil, fmt.Errorf("item not found in state %v: %v.%v", next.num, c.item.key.prod, c.item.dot+1)
					}
				}

				for a := range c.lookAhead {
					if a == propagationMarker {
						dests = append(dests, dest)
						continue
					}
					dest.addLookAhead(a)
				}
			}
			if len(dests) == 0 {
				continue
			}
			props = append(props, &propagation{
				src:   kItem,
				dests: dests,
			})
		}
	}

	for {
		changed := false
		for _, prop := range props {
			for _, dest := range prop.dests {
				for a := range prop.src.lookAhead {
					if dest.addLookAhead(a) {
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}

	return &lalr1Automaton{
		lr0Automaton: lr0,
	}, nil
}

type closureItem struct {
	item      *lrItem
	lookAhead map[symbol.Symbol]struct{}
}

// genLALR1Closure computes CLOSURE({[kItem, #]}) with LR(1) items. Items
// sharing a core share one entry whose look-ahead set grows.
func genLALR1Closure(kItem *lrItem, prods *productionSet, first *firstSet) ([]*closureItem, error) {
	root := &closureItem{
		item: kItem,
		lookAhead: map[symbol.Symbol]struct{}{
			propagationMarker: {},
		},
	}
	entries := map[itemKey]*closureItem{
		kItem.key: root,
	}
	ordered := []*closureItem{root}
	queue := []*closureItem{root}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if !c.item.dottedSymbol.IsNonTerminal() {
			continue
		}

		fst, err := first.find(c.item.prod, c.item.dot+1)
		if err != nil {
			return nil, err
		}
		lookAhead := make([]symbol.Symbol, 0, len(fst.symbols)+len(c.lookAhead))
		for a := range fst.symbols {
			lookAhead = append(lookAhead, a)
		}
		if fst.empty {
			for a := range c.lookAhead {
				lookAhead = append(lookAhead, a)
			}
		}

		ps, _ := prods.findByLHS(c.item.dottedSymbol)
		for _, prod := range ps {
			key := itemKey{prod: prod.num, dot: 0}
			e, ok := entries[key]
			changed := false
			if !ok {
				item, err := newLR0Item(prod, 0)
				if err != nil {
					return nil, err
				}
				e = &closureItem{
					item:      item,
					lookAhead: map[symbol.Symbol]struct{}{},
				}
				entries[key] = e
				ordered = append(ordered, e)
				changed = true
			}
			for _, a := range lookAhead {
				if _, ok := e.lookAhead[a]; ok {
					continue
				}
				e.lookAhead[a] = struct{}{}
				changed = true
			}
			if changed {
				queue = append(queue, e)
			}
		}
	}
	return ordered, nil
}
