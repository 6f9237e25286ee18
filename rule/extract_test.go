package rule

import (
	"errors"
	"strings"
	"testing"

	verr "github.com/nihei9/rulegen/error"
)

func nop(nonterminal string, alt int, names []string, values []any) (any, error) {
	return nil, nil
}

func exprDefinition() *Definition {
	return &Definition{
		Name: "expr",
		Tokens: `
[0-9]+ = NUM
\+     = PLUS
\*     = TIMES
[ ]+   = _
#[^\n]* = _comment
`,
		Precedences: []*PrecedenceGroup{
			{Assoc: AssocLeft, Tokens: []string{"PLUS"}},
			{Assoc: AssocLeft, Tokens: []string{"TIMES"}},
		},
		Handlers: []*Handler{
			{
				Start: true,
				Rules: `
expr
    : expr PLUS expr
    | expr TIMES expr
    | NUM
`,
				Func: nop,
			},
		},
		Discards: map[string]DiscardFunc{
			"comment": func(string) {},
		},
	}
}

func TestExtract(t *testing.T) {
	rs, err := Extract(exprDefinition())
	if err != nil {
		t.Fatal(err)
	}
	if rs.Start != "expr" {
		t.Fatalf("unexpected start symbol: %v", rs.Start)
	}
	if got := strings.Join(rs.Tokens, " "); got != "NUM PLUS TIMES" {
		t.Fatalf("tokens must be sorted and deduplicated: %v", got)
	}
	if len(rs.TokenRules) != 5 {
		t.Fatalf("unexpected token rule count: %v", len(rs.TokenRules))
	}
	if r := rs.TokenRules[4]; !r.Discard || r.DiscardName != "comment" || r.Pattern != `#[^\n]*` {
		t.Fatalf("unexpected discard rule: %+v", r)
	}
	if r := rs.TokenRules[3]; !r.Discard || r.DiscardName != "" {
		t.Fatalf("unexpected skip rule: %+v", r)
	}
	if len(rs.Productions) != 1 || len(rs.Productions[0].Alternatives) != 3 {
		t.Fatalf("unexpected productions: %+v", rs.Productions)
	}
	if got := strings.Join(rs.Productions[0].Alternatives[1].Symbols, " "); got != "expr TIMES expr" {
		t.Fatalf("unexpected alternative: %v", got)
	}
	if _, ok := rs.Handlers["expr"]; !ok {
		t.Fatalf("the handler of expr is missing")
	}
	if _, ok := rs.Discards["comment"]; !ok {
		t.Fatalf("the discard action is missing")
	}
}

func TestExtract_DuplicateTokenPatterns(t *testing.T) {
	def := &Definition{
		Name: "dup",
		Tokens: `
a = X
b = X
`,
		Handlers: []*Handler{
			{Start: true, Rules: "s\n: X", Func: nop},
		},
	}
	rs, err := Extract(def)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Tokens) != 1 || rs.Tokens[0] != "X" {
		t.Fatalf("unexpected tokens: %v", rs.Tokens)
	}
	if len(rs.TokenRules) != 2 {
		t.Fatalf("both rules must be kept: %v", len(rs.TokenRules))
	}
}

func TestExtract_PatternContainingEquals(t *testing.T) {
	def := &Definition{
		Name: "eq",
		Tokens: `
== = EQ
=  = ASSIGN
`,
		Handlers: []*Handler{
			{Start: true, Rules: "s\n: EQ\n| ASSIGN", Func: nop},
		},
	}
	rs, err := Extract(def)
	if err != nil {
		t.Fatal(err)
	}
	if rs.TokenRules[0].Pattern != "==" || rs.TokenRules[1].Pattern != "=" {
		t.Fatalf("unexpected patterns: %v, %v", rs.TokenRules[0].Pattern, rs.TokenRules[1].Pattern)
	}
}

func TestExtract_EmptyAlternative(t *testing.T) {
	def := &Definition{
		Name:   "opt",
		Tokens: "a = A",
		Handlers: []*Handler{
			{Start: true, Rules: "s\n: A s\n|", Func: nop},
		},
	}
	rs, err := Extract(def)
	if err != nil {
		t.Fatal(err)
	}
	alts := rs.Productions[0].Alternatives
	if len(alts) != 2 || len(alts[1].Symbols) != 0 {
		t.Fatalf("unexpected alternatives: %+v", alts)
	}
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		caption string
		modify  func(d *Definition)
		causes  []error
	}{
		{
			caption: "a definition needs a name",
			modify: func(d *Definition) {
				d.Name = ""
			},
			causes: []error{semErrNoName},
		},
		{
			caption: "a definition name must be an identifier",
			modify: func(d *Definition) {
				d.Name = "a b"
			},
			causes: []error{semErrInvalidName},
		},
		{
			caption: "a definition name cannot contain uppercase letters",
			modify: func(d *Definition) {
				d.Name = "JSON"
			},
			causes: []error{semErrInvalidName},
		},
		{
			caption: "a definition name cannot contain hyphens",
			modify: func(d *Definition) {
				d.Name = "my-parser"
			},
			causes: []error{semErrInvalidName},
		},
		{
			caption: "a definition name cannot contain consecutive underscores",
			modify: func(d *Definition) {
				d.Name = "a__b"
			},
			causes: []error{semErrInvalidName},
		},
		{
			caption: "a definition name cannot end with an underscore",
			modify: func(d *Definition) {
				d.Name = "expr_"
			},
			causes: []error{semErrInvalidName},
		},
		{
			caption: "a token rule needs '='",
			modify: func(d *Definition) {
				d.Tokens += "\n[a-z]+ IDENT\n"
			},
			causes: []error{semErrMalformedTokenRule},
		},
		{
			caption: "a token name must be an identifier",
			modify: func(d *Definition) {
				d.Tokens += "\n[a-z]+ = 1ID\n"
			},
			causes: []error{semErrInvalidTokenName},
		},
		{
			caption: "a named discard action must be registered",
			modify: func(d *Definition) {
				d.Discards = nil
			},
			causes: []error{semErrUndefinedDiscard},
		},
		{
			caption: "zero start handlers is an error",
			modify: func(d *Definition) {
				d.Handlers[0].Start = false
			},
			causes: []error{semErrStartCount},
		},
		{
			caption: "two start handlers is an error",
			modify: func(d *Definition) {
				d.Tokens += "\nx = X\n"
				d.Register(&Handler{Start: true, Rules: "other\n: X", Func: nop})
			},
			causes: []error{semErrStartCount},
		},
		{
			caption: "a token used in a production must be defined",
			modify: func(d *Definition) {
				d.Handlers[0].Rules += "| MINUS\n"
			},
			causes: []error{semErrUndefinedSym},
		},
		{
			caption: "a handler needs a function",
			modify: func(d *Definition) {
				d.Handlers[0].Func = nil
			},
			causes: []error{semErrNilHandlerFunc},
		},
		{
			caption: "a nonterminal can have only one handler",
			modify: func(d *Definition) {
				d.Register(&Handler{Rules: "expr\n: NUM NUM", Func: nop})
			},
			causes: []error{semErrDuplicateHandler},
		},
		{
			caption: "the declared nonterminal must match the fragment",
			modify: func(d *Definition) {
				d.Handlers[0].Nonterminal = "term"
			},
			causes: []error{semErrHandlerMismatch},
		},
		{
			caption: "the first alternative must be led by a colon",
			modify: func(d *Definition) {
				d.Handlers[0].Rules = "expr\n| NUM\n"
			},
			causes: []error{semErrNoColon},
		},
		{
			caption: "duplicate alternatives are an error",
			modify: func(d *Definition) {
				d.Handlers[0].Rules += "| NUM\n"
			},
			causes: []error{semErrDuplicateAlt},
		},
		{
			caption: "a token cannot share its name with a nonterminal",
			modify: func(d *Definition) {
				d.Tokens += "\nexpr = expr\n"
			},
			causes: []error{semErrDuplicateName},
		},
		{
			caption: "a precedence group needs a valid associativity",
			modify: func(d *Definition) {
				d.Precedences[0].Assoc = "up"
			},
			causes: []error{semErrInvalidAssoc},
		},
		{
			caption: "a token can appear in only one precedence group",
			modify: func(d *Definition) {
				d.Precedences[1].Tokens = append(d.Precedences[1].Tokens, "PLUS")
			},
			causes: []error{semErrDuplicatePrec},
		},
		{
			caption: "a precedence group can contain only defined tokens",
			modify: func(d *Definition) {
				d.Precedences[1].Tokens = []string{"DIV"}
			},
			causes: []error{semErrPrecUndefinedToken},
		},
		{
			caption: "every problem is reported at once",
			modify: func(d *Definition) {
				d.Name = ""
				d.Discards = nil
				d.Handlers[0].Func = nil
			},
			causes: []error{semErrNoName, semErrUndefinedDiscard, semErrNilHandlerFunc},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			def := exprDefinition()
			tt.modify(def)
			_, err := Extract(def)
			if err == nil {
				t.Fatal("an error must occur")
			}
			specErrs, ok := err.(verr.SpecErrors)
			if !ok {
				t.Fatalf("unexpected error type: %T", err)
			}
			for _, cause := range tt.causes {
				if !errors.Is(specErrs, cause) {
					t.Errorf("missing cause %q in:\n%v", cause, err)
				}
			}
		})
	}
}

func TestExtract_Warnings(t *testing.T) {
	tests := []struct {
		caption string
		modify  func(d *Definition)
		cause   error
		detail  string
	}{
		{
			caption: "an unreachable nonterminal is a warning",
			modify: func(d *Definition) {
				d.Register(&Handler{Rules: "orphan\n: NUM", Func: nop})
			},
			cause:  semErrUnusedNonterminal,
			detail: "orphan",
		},
		{
			caption: "an unused token is a warning",
			modify: func(d *Definition) {
				d.Tokens += "\n- = MINUS\n"
			},
			cause:  semErrUnusedToken,
			detail: "MINUS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			def := exprDefinition()
			tt.modify(def)
			rs, err := Extract(def)
			if err != nil {
				t.Fatal(err)
			}
			if len(rs.Warnings) != 1 {
				t.Fatalf("unexpected warnings: %v", rs.Warnings)
			}
			w := rs.Warnings[0]
			if !errors.Is(w.Cause, tt.cause) || w.Detail != tt.detail {
				t.Fatalf("unexpected warning: %v", w)
			}
		})
	}

	rs, err := Extract(exprDefinition())
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Warnings) != 0 {
		t.Fatalf("a definition using every symbol must yield no warning: %v", rs.Warnings)
	}
}

func TestExtract_ErrorPosition(t *testing.T) {
	def := exprDefinition()
	def.Tokens = "[0-9]+ = NUM\n\\+ = PLUS\n\\* = TIMES\n\nbad line\n"
	def.Discards = nil
	_, err := Extract(def)
	specErrs, ok := err.(verr.SpecErrors)
	if !ok || len(specErrs) != 1 {
		t.Fatalf("unexpected error: %v", err)
	}
	e := specErrs[0]
	if e.Row != 5 || e.SourceName != "expr: tokens" {
		t.Fatalf("unexpected error position: %v, %v", e.SourceName, e.Row)
	}
}
