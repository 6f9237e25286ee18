package grammar

import (
	"fmt"
	"strings"
)

// ConflictError is an LALR(1) conflict no precedence declaration decides.
type ConflictError struct {
	// Kind is either "shift/reduce" or "reduce/reduce".
	Kind   string
	State  int
	Symbol string

	// Shift is the state a shift/reduce conflict would shift to.
	Shift int

	// Productions lists the productions competing for the reduction.
	Productions []string
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v conflict in state %v on %v: ", e.Kind, e.State, e.Symbol)
	if e.Kind == "shift/reduce" {
		fmt.Fprintf(&b, "shift to state %v or reduce %v", e.Shift, e.Productions[0])
		return b.String()
	}
	for i, p := range e.Productions {
		if i > 0 {
			fmt.Fprintf(&b, " or ")
		}
		fmt.Fprintf(&b, "reduce %v", p)
	}
	return b.String()
}

type ConflictErrors []*ConflictError

func (e ConflictErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v unresolved conflict(s)", len(e))
	for _, c := range e {
		fmt.Fprintf(&b, "\n%v", c)
	}
	return b.String()
}

func (e ConflictErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

func (b *lrTableBuilder) conflictErrors() ConflictErrors {
	var errs ConflictErrors
	for _, c := range b.unresolvedConflicts() {
		switch c := c.(type) {
		case *shiftReduceConflict:
			errs = append(errs, &ConflictError{
				Kind:        "shift/reduce",
				State:       c.state.Int(),
				Symbol:      b.symbolText(c.sym),
				Shift:       c.nextState.Int(),
				Productions: []string{b.productionText(c.prodNum)},
			})
		case *reduceReduceConflict:
			errs = append(errs, &ConflictError{
				Kind:   "reduce/reduce",
				State:  c.state.Int(),
				Symbol: b.symbolText(c.sym),
				Productions: []string{
					b.productionText(c.prodNum1),
					b.productionText(c.prodNum2),
				},
			})
		}
	}
	return errs
}
