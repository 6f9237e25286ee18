package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/rulegen/grammar/symbol"
)

type ActionType string

const (
	ActionTypeShift  = ActionType("shift")
	ActionTypeReduce = ActionType("reduce")
	ActionTypeError  = ActionType("error")
)

// actionEntry encodes a shift as the negated next state and a reduce as the
// production number. Zero is an error.
type actionEntry int

const actionEntryEmpty = actionEntry(0)

func newShiftActionEntry(state stateNum) actionEntry {
	return actionEntry(state * -1)
}

func newReduceActionEntry(prod productionNum) actionEntry {
	return actionEntry(prod)
}

func (e actionEntry) isEmpty() bool {
	return e == actionEntryEmpty
}

func (e actionEntry) describe() (ActionType, stateNum, productionNum) {
	if e == actionEntryEmpty {
		return ActionTypeError, stateNumInitial, productionNumNil
	}
	if e < 0 {
		return ActionTypeShift, stateNum(e * -1), productionNumNil
	}
	return ActionTypeReduce, stateNumInitial, productionNum(e)
}

type goToEntry uint

const goToEntryEmpty = goToEntry(0)

type conflictResolutionMethod int

func (m conflictResolutionMethod) Int() int {
	return int(m)
}

// ResolvedByShift and ResolvedByProdOrder are the fallbacks applied when no
// precedence decides a conflict. Such conflicts fail the build but still
// appear in the report.
const (
	ResolvedByPrec      conflictResolutionMethod = 1
	ResolvedByAssoc     conflictResolutionMethod = 2
	ResolvedByShift     conflictResolutionMethod = 3
	ResolvedByProdOrder conflictResolutionMethod = 4
)

func (m conflictResolutionMethod) resolved() bool {
	return m == ResolvedByPrec || m == ResolvedByAssoc
}

type conflict interface {
	conflict()
}

type shiftReduceConflict struct {
	state      stateNum
	sym        symbol.Symbol
	nextState  stateNum
	prodNum    productionNum
	resolvedBy conflictResolutionMethod
}

func (c *shiftReduceConflict) conflict() {
}

type reduceReduceConflict struct {
	state      stateNum
	sym        symbol.Symbol
	prodNum1   productionNum
	prodNum2   productionNum
	resolvedBy conflictResolutionMethod
}

func (c *reduceReduceConflict) conflict() {
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

type ParsingTable struct {
	actionTable      []actionEntry
	goToTable        []goToEntry
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	InitialState stateNum
}

func (t *ParsingTable) getAction(state stateNum, sym symbol.SymbolNum) (ActionType, stateNum, productionNum) {
	return t.actionTable[state.Int()*t.terminalCount+sym.Int()].describe()
}

func (t *ParsingTable) getGoTo(state stateNum, sym symbol.SymbolNum) (stateNum, bool) {
	e := t.goToTable[state.Int()*t.nonTerminalCount+sym.Int()]
	return stateNum(e), e != goToEntryEmpty
}

func (t *ParsingTable) readAction(row int, col int) actionEntry {
	return t.actionTable[row*t.terminalCount+col]
}

func (t *ParsingTable) writeAction(row int, col int, act actionEntry) {
	t.actionTable[row*t.terminalCount+col] = act
}

func (t *ParsingTable) writeGoTo(state stateNum, sym symbol.Symbol, nextState stateNum) {
	t.goToTable[state.Int()*t.nonTerminalCount+sym.Num().Int()] = goToEntry(nextState)
}

type cell struct {
	state stateNum
	sym   symbol.SymbolNum
}

type lrTableBuilder struct {
	automaton    *lr0Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbol.SymbolTable
	precAndAssoc *precAndAssoc

	conflicts []conflict

	// errorCells holds the cells a nonassociative operator turned into
	// errors. No later reduction may fill them.
	errorCells map[cell]struct{}
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	initialState := b.automaton.states[b.automaton.initialState]
	stateCount := len(b.automaton.ordered)
	ptab := &ParsingTable{
		actionTable:      make([]actionEntry, stateCount*b.termCount),
		goToTable:        make([]goToEntry, stateCount*b.nonTermCount),
		stateCount:       stateCount,
		terminalCount:    b.termCount,
		nonTerminalCount: b.nonTermCount,
		InitialState:     initialState.num,
	}
	b.errorCells = map[cell]struct{}{}

	for _, state := range b.automaton.ordered {
		syms := make([]symbol.Symbol, 0, len(state.next))
		for sym := range state.next {
			syms = append(syms, sym)
		}
		sort.Slice(syms, func(i, j int) bool {
			return syms[i] < syms[j]
		})
		for _, sym := range syms {
			nextState, ok := b.automaton.states[state.next[sym]]
			if !ok {
				return nil, fmt.Errorf("next state not found; state: %v, symbol: %v", state.num, sym)
			}
			if sym.IsTerminal() {
				b.writeShiftAction(ptab, state.num, sym, nextState.num)
			} else {
				ptab.writeGoTo(state.num, sym, nextState.num)
			}
		}

		for _, item := range state.reducibleItems() {
			for _, a := range item.sortedLookAhead() {
				b.writeReduceAction(ptab, state.num, a, item.prod.num)
			}
		}
	}

	return ptab, nil
}

// writeShiftAction writes a shift action. A shift/reduce conflict is decided
// by precedence; without one the shift wins and the conflict stays
// unresolved.
func (b *lrTableBuilder) writeShiftAction(tab *ParsingTable, state stateNum, sym symbol.Symbol, nextState stateNum) {
	act := tab.readAction(state.Int(), sym.Num().Int())
	if !act.isEmpty() {
		ty, _, p := act.describe()
		if ty == ActionTypeReduce {
			b.resolveSR(tab, state, sym, nextState, p)
			return
		}
	}
	tab.writeAction(state.Int(), sym.Num().Int(), newShiftActionEntry(nextState))
}

// writeReduceAction writes a reduce action. On a reduce/reduce conflict the
// production defined earlier wins and the conflict stays unresolved.
func (b *lrTableBuilder) writeReduceAction(tab *ParsingTable, state stateNum, sym symbol.Symbol, prod productionNum) {
	if _, ok := b.errorCells[cell{state: state, sym: sym.Num()}]; ok {
		return
	}

	act := tab.readAction(state.Int(), sym.Num().Int())
	if act.isEmpty() {
		tab.writeAction(state.Int(), sym.Num().Int(), newReduceActionEntry(prod))
		return
	}

	ty, s, p := act.describe()
	switch ty {
	case ActionTypeReduce:
		if p == prod {
			return
		}
		b.conflicts = append(b.conflicts, &reduceReduceConflict{
			state:      state,
			sym:        sym,
			prodNum1:   p,
			prodNum2:   prod,
			resolvedBy: ResolvedByProdOrder,
		})
		if prod < p {
			tab.writeAction(state.Int(), sym.Num().Int(), newReduceActionEntry(prod))
		}
	case ActionTypeShift:
		b.resolveSR(tab, state, sym, s, prod)
	}
}

func (b *lrTableBuilder) resolveSR(tab *ParsingTable, state stateNum, sym symbol.Symbol, nextState stateNum, prod productionNum) {
	act, method := b.resolveSRConflict(sym.Num(), prod)
	b.conflicts = append(b.conflicts, &shiftReduceConflict{
		state:      state,
		sym:        sym,
		nextState:  nextState,
		prodNum:    prod,
		resolvedBy: method,
	})
	switch act {
	case ActionTypeShift:
		tab.writeAction(state.Int(), sym.Num().Int(), newShiftActionEntry(nextState))
	case ActionTypeReduce:
		tab.writeAction(state.Int(), sym.Num().Int(), newReduceActionEntry(prod))
	case ActionTypeError:
		tab.writeAction(state.Int(), sym.Num().Int(), actionEntryEmpty)
		b.errorCells[cell{state: state, sym: sym.Num()}] = struct{}{}
	}
}

func (b *lrTableBuilder) resolveSRConflict(sym symbol.SymbolNum, prod productionNum) (ActionType, conflictResolutionMethod) {
	symPrec := b.precAndAssoc.terminalPrecedence(sym)
	prodPrec := b.precAndAssoc.productionPrecedence(prod)
	if symPrec == precNil || prodPrec == precNil {
		return ActionTypeShift, ResolvedByShift
	}
	if symPrec == prodPrec {
		switch b.precAndAssoc.productionAssociativity(prod) {
		case assocTypeLeft:
			return ActionTypeReduce, ResolvedByAssoc
		case assocTypeRight:
			return ActionTypeShift, ResolvedByAssoc
		}
		return ActionTypeError, ResolvedByAssoc
	}
	if symPrec > prodPrec {
		return ActionTypeShift, ResolvedByPrec
	}
	return ActionTypeReduce, ResolvedByPrec
}

// unresolvedConflicts returns the conflicts no precedence decided.
func (b *lrTableBuilder) unresolvedConflicts() []conflict {
	var cs []conflict
	for _, c := range b.conflicts {
		switch c := c.(type) {
		case *shiftReduceConflict:
			if !c.resolvedBy.resolved() {
				cs = append(cs, c)
			}
		case *reduceReduceConflict:
			if !c.resolvedBy.resolved() {
				cs = append(cs, c)
			}
		}
	}
	return cs
}
