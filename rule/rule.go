// Package rule turns a user's rule definition into a rule set: ordered token
// rules, grammar productions, the start symbol, and the handler bound to each
// nonterminal.
package rule

import (
	"fmt"

	verr "github.com/nihei9/rulegen/error"
)

// HandlerFunc builds the value of a nonterminal from its children. alt is the
// 0-based index of the matched alternative, names are the child symbol names,
// and values are the child values in source order. A terminal value is a
// string, or a source.Token when location tracking is enabled.
type HandlerFunc func(nonterminal string, alt int, names []string, values []any) (any, error)

// DiscardFunc is invoked with the matched text of a named discard rule.
type DiscardFunc func(text string)

type Assoc string

const (
	AssocLeft     Assoc = "left"
	AssocRight    Assoc = "right"
	AssocNonAssoc Assoc = "nonassoc"
)

func (a Assoc) valid() bool {
	switch a {
	case AssocLeft, AssocRight, AssocNonAssoc:
		return true
	}
	return false
}

// PrecedenceGroup declares terminals sharing one precedence level. Groups
// are listed from the loosest binding to the tightest.
type PrecedenceGroup struct {
	Assoc  Assoc
	Tokens []string
}

// Handler binds a grammar fragment to the function reducing it. Rules is a
// table whose first line names the nonterminal and whose following lines
// list alternatives, the first one led by ':' and the others by '|'.
type Handler struct {
	Nonterminal string
	Rules       string
	Start       bool
	Func        HandlerFunc
}

// name returns the declared nonterminal, or the one the grammar fragment
// reduces when none is declared.
func (h *Handler) name() string {
	if h.Nonterminal != "" {
		return h.Nonterminal
	}
	prod, _ := parseProductionTable(h.Rules)
	if prod == nil {
		return ""
	}
	return prod.Nonterminal
}

// Definition is the user-facing description of a parser.
type Definition struct {
	// Name identifies the definition. It keys the engine cache and names the
	// build artifacts.
	Name string

	// Tokens is the lexer table. Each non-blank line reads
	// `<pattern> = <TOKEN>`, `<pattern> = _`, or `<pattern> = _<discard>`.
	Tokens string

	Precedences []*PrecedenceGroup
	Handlers    []*Handler

	// Discards holds the functions named by `_<discard>` lexer rules.
	Discards map[string]DiscardFunc
}

// Register appends handlers and returns the definition for chaining.
func (d *Definition) Register(hs ...*Handler) *Definition {
	d.Handlers = append(d.Handlers, hs...)
	return d
}

// Bind sets the function of the handler reducing the nonterminal.
func (d *Definition) Bind(nonterminal string, f HandlerFunc) error {
	for _, h := range d.Handlers {
		if h.name() == nonterminal {
			h.Func = f
			return nil
		}
	}
	return fmt.Errorf("%v has no handler for %v", d.Name, nonterminal)
}

// BindAll sets f for every handler that has no function yet.
func (d *Definition) BindAll(f HandlerFunc) {
	for _, h := range d.Handlers {
		if h.Func == nil {
			h.Func = f
		}
	}
}

// BindDiscards sets f for every discard action the lexer table names and the
// definition has no function for. Malformed lines are left to Extract.
func (d *Definition) BindDiscards(f DiscardFunc) {
	rules, _ := parseTokenTable(d.Tokens)
	for _, r := range rules {
		if !r.Discard || r.DiscardName == "" {
			continue
		}
		if d.Discards == nil {
			d.Discards = map[string]DiscardFunc{}
		}
		if d.Discards[r.DiscardName] == nil {
			d.Discards[r.DiscardName] = f
		}
	}
}

// TokenRule is one line of the lexer table. A rule either emits a token or
// discards its match.
type TokenRule struct {
	Pattern string
	Token   string
	Discard bool

	// DiscardName names the DiscardFunc to call. It is empty for a plain
	// skip.
	DiscardName string

	// Row is the 1-based line of the rule within the lexer table.
	Row int
}

type Alternative struct {
	Symbols []string
}

type Production struct {
	Nonterminal  string
	Alternatives []*Alternative
}

// RuleSet is the validated output of Extract.
type RuleSet struct {
	Name        string
	TokenRules  []*TokenRule
	Tokens      []string
	Start       string
	Productions []*Production
	Precedences []*PrecedenceGroup
	Handlers    map[string]HandlerFunc
	Discards    map[string]DiscardFunc

	// Warnings lists the nonterminals and tokens the start symbol never
	// reaches.
	Warnings verr.SpecErrors
}
