package grammar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nihei9/rulegen/grammar/symbol"
)

type itemKey struct {
	prod productionNum
	dot  int
}

func (k itemKey) String() string {
	return fmt.Sprintf("%v.%v", k.prod, k.dot)
}

// lrItem is a production with a dot.
//
//	E → E + T
//
//	Dot | Dotted Symbol | Item
//	----+---------------+------------
//	0   | E             | E →・E + T
//	1   | +             | E → E・+ T
//	2   | T             | E → E +・T
//	3   | Nil           | E → E + T・
type lrItem struct {
	key          itemKey
	prod         *production
	dot          int
	dottedSymbol symbol.Symbol

	// kernel is true for S' →・S and for every item whose dot is not at the
	// beginning.
	kernel    bool
	reducible bool

	// lookAhead is filled by the LALR(1) pass.
	lookAhead map[symbol.Symbol]struct{}
}

func newLR0Item(prod *production, dot int) (*lrItem, error) {
	if prod == nil {
		return nil, fmt.Errorf("production must be non-nil")
	}
	if dot < 0 || dot > len(prod.rhs) {
		return nil, fmt.Errorf("dot must be between 0 and %v", len(prod.rhs))
	}

	dotted := symbol.SymbolNil
	if dot < len(prod.rhs) {
		dotted = prod.rhs[dot]
	}

	return &lrItem{
		key: itemKey{
			prod: prod.num,
			dot:  dot,
		},
		prod:         prod,
		dot:          dot,
		dottedSymbol: dotted,
		kernel:       dot > 0 || prod.lhs.IsStart(),
		reducible:    dot == len(prod.rhs),
		lookAhead:    map[symbol.Symbol]struct{}{},
	}, nil
}

func (it *lrItem) addLookAhead(sym symbol.Symbol) bool {
	if _, ok := it.lookAhead[sym]; ok {
		return false
	}
	it.lookAhead[sym] = struct{}{}
	return true
}

func (it *lrItem) sortedLookAhead() []symbol.Symbol {
	syms := make([]symbol.Symbol, 0, len(it.lookAhead))
	for sym := range it.lookAhead {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}

// kernelID is the sorted list of item keys. Two kernels with the same items
// have the same ID.
type kernelID string

type kernel struct {
	id    kernelID
	items []*lrItem
	item  map[itemKey]*lrItem
}

func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel needs at least one item")
	}

	m := map[itemKey]*lrItem{}
	for _, item := range items {
		if !item.kernel {
			return nil, fmt.Errorf("not a kernel item: %v", item.key)
		}
		m[item.key] = item
	}
	sorted := make([]*lrItem, 0, len(m))
	for _, item := range m {
		sorted = append(sorted, item)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].key, sorted[j].key
		if a.prod != b.prod {
			return a.prod < b.prod
		}
		return a.dot < b.dot
	})

	keys := make([]string, len(sorted))
	for i, item := range sorted {
		keys[i] = item.key.String()
	}

	return &kernel{
		id:    kernelID(strings.Join(keys, ",")),
		items: sorted,
		item:  m,
	}, nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

type lrState struct {
	*kernel
	num  stateNum
	next map[symbol.Symbol]kernelID

	// emptyProdItems holds the reducible `p →・ε` items of the closure. They
	// are not kernel items, yet they need their own look-ahead symbols.
	//
	//	s' → s
	//	s → A | ε
	//
	// CLOSURE({s' →・s}) contains s →・ε while the kernel holds only s' →・s.
	emptyProdItems map[itemKey]*lrItem
}

// reducibleItems returns the items the state can reduce by, in a stable
// order.
func (s *lrState) reducibleItems() []*lrItem {
	var items []*lrItem
	for _, item := range s.items {
		if item.reducible {
			items = append(items, item)
		}
	}
	var empties []*lrItem
	for _, item := range s.emptyProdItems {
		empties = append(empties, item)
	}
	sort.Slice(empties, func(i, j int) bool {
		return empties[i].key.prod < empties[j].key.prod
	})
	return append(items, empties...)
}
