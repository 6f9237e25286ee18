package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/rulegen/grammar/symbol"
)

type lr0Automaton struct {
	initialState kernelID
	states       map[kernelID]*lrState

	// ordered holds the states by state number.
	ordered []*lrState
}

func genLR0Automaton(prods *productionSet, startSym symbol.Symbol) (*lr0Automaton, error) {
	if !startSym.IsStart() {
		return nil, fmt.Errorf("passed symbol is not a start symbol")
	}

	startProds, ok := prods.findByLHS(startSym)
	if !ok || len(startProds) != 1 {
		return nil, fmt.Errorf("the start symbol needs exactly one production")
	}
	initialItem, err := newLR0Item(startProds[0], 0)
	if err != nil {
		return nil, err
	}
	initial, err := newKernel([]*lrItem{initialItem})
	if err != nil {
		return nil, err
	}

	automaton := &lr0Automaton{
		initialState: initial.id,
		states:       map[kernelID]*lrState{},
	}
	known := map[kernelID]struct{}{
		initial.id: {},
	}
	queue := []*kernel{initial}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]

		state, neighbours, err := genStateAndNeighbourKernels(k, prods)
		if err != nil {
			return nil, err
		}
		state.num = stateNum(len(automaton.ordered))
		automaton.states[state.id] = state
		automaton.ordered = append(automaton.ordered, state)

		for _, n := range neighbours {
			if _, ok := known[n.id]; ok {
				continue
			}
			known[n.id] = struct{}{}
			queue = append(queue, n)
		}
	}

	return automaton, nil
}

func genStateAndNeighbourKernels(k *kernel, prods *productionSet) (*lrState, []*kernel, error) {
	items, err := genLR0Closure(k, prods)
	if err != nil {
		return nil, nil, err
	}

	gotoItems := map[symbol.Symbol][]*lrItem{}
	emptyProdItems := map[itemKey]*lrItem{}
	for _, item := range items {
		if item.reducible {
			if !item.kernel {
				emptyProdItems[item.key] = item
			}
			continue
		}
		next, err := newLR0Item(item.prod, item.dot+1)
		if err != nil {
			return nil, nil, err
		}
		gotoItems[item.dottedSymbol] = append(gotoItems[item.dottedSymbol], next)
	}

	syms := make([]symbol.Symbol, 0, len(gotoItems))
	for sym := range gotoItems {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})

	next := map[symbol.Symbol]kernelID{}
	neighbours := make([]*kernel, 0, len(syms))
	for _, sym := range syms {
		n, err := newKernel(gotoItems[sym])
		if err != nil {
			return nil, nil, err
		}
		next[sym] = n.id
		neighbours = append(neighbours, n)
	}

	return &lrState{
		kernel:         k,
		next:           next,
		emptyProdItems: emptyProdItems,
	}, neighbours, nil
}

// genLR0Closure returns the kernel items followed by the items the closure
// adds, in the order they are found.
func genLR0Closure(k *kernel, prods *productionSet) ([]*lrItem, error) {
	items := append([]*lrItem(nil), k.items...)
	known := map[itemKey]struct{}{}
	for _, item := range k.items {
		known[item.key] = struct{}{}
	}
	for i := 0; i < len(items); i++ {
		dotted := items[i].dottedSymbol
		if !dotted.IsNonTerminal() {
			continue
		}
		ps, _ := prods.findByLHS(dotted)
		for _, prod := range ps {
			item, err := newLR0Item(prod, 0)
			if err != nil {
				return nil, err
			}
			if _, ok := known[item.key]; ok {
				continue
			}
			known[item.key] = struct{}{}
			items = append(items, item)
		}
	}
	return items, nil
}
