// Package synth turns a rule set into the two textual specifications an
// engine is built from: a lexer specification and a grammar specification.
package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	mlspec "github.com/nihei9/maleeni/spec"
	verr "github.com/nihei9/rulegen/error"
	"github.com/nihei9/rulegen/rule"
)

// LexEntry is one lexer rule in the order of the lexer table. Earlier entries
// win when two rules match the same longest text.
type LexEntry struct {
	// Kind is the lexer's name for the rule. It is unique per entry.
	Kind string

	// Pattern is the pattern in the lexer's dialect; Source is the pattern as
	// written in the lexer table.
	Pattern string
	Source  string

	Token       string
	Discard     bool
	DiscardName string
	Row         int
}

type LexerSpec struct {
	Name     string
	Start    string
	Location bool
	Entries  []*LexEntry
}

// LexSpec converts the entries into the lexer compiler's input. The lexer
// compiler names the specification after the definition.
func (s *LexerSpec) LexSpec() *mlspec.LexSpec {
	entries := make([]*mlspec.LexEntry, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = &mlspec.LexEntry{
			Kind:    mlspec.LexKindName(e.Kind),
			Pattern: mlspec.LexPattern(e.Pattern),
		}
	}
	return &mlspec.LexSpec{
		Name:    s.Name,
		Entries: entries,
	}
}

// Text renders the lexer specification in a flex-like layout.
func (s *LexerSpec) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%{\n")
	fmt.Fprintf(&b, "// Start node is: %v\n", s.Start)
	fmt.Fprintf(&b, "// Lexer: %v\n", s.Name)
	fmt.Fprintf(&b, "%%}\n")
	if s.Location {
		fmt.Fprintf(&b, "%%option location\n")
	}
	fmt.Fprintf(&b, "%%%%\n")
	for _, e := range s.Entries {
		var action string
		switch {
		case e.Discard && e.DiscardName != "":
			action = fmt.Sprintf("discard(%v);", e.DiscardName)
		case e.Discard:
			action = "/* skip */"
		case s.Location:
			action = fmt.Sprintf("return_token_loc(%v);", e.Token)
		default:
			action = fmt.Sprintf("return_token(%v);", e.Token)
		}
		fmt.Fprintf(&b, "%v { %v } // %v\n", e.Pattern, action, e.Kind)
	}
	fmt.Fprintf(&b, "%%%%\n")
	return b.String()
}

type GrammarSpec struct {
	Name        string
	Start       string
	Tokens      []string
	Precedences []*rule.PrecedenceGroup
	Productions []*rule.Production
}

// Text renders the grammar specification in a yacc-like layout.
func (g *GrammarSpec) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%start %v\n", g.Start)
	if len(g.Tokens) > 0 {
		fmt.Fprintf(&b, "%%token %v\n", strings.Join(g.Tokens, " "))
	}
	for _, p := range g.Precedences {
		fmt.Fprintf(&b, "%%%v %v\n", p.Assoc, strings.Join(p.Tokens, " "))
	}
	fmt.Fprintf(&b, "%%%%\n")
	for _, p := range g.Productions {
		fmt.Fprintf(&b, "%v\n", p.Nonterminal)
		for i, alt := range p.Alternatives {
			lead := "|"
			if i == 0 {
				lead = ":"
			}
			if len(alt.Symbols) == 0 {
				fmt.Fprintf(&b, "    %v %%empty\n", lead)
				continue
			}
			fmt.Fprintf(&b, "    %v %v\n", lead, strings.Join(alt.Symbols, " "))
		}
		fmt.Fprintf(&b, "    ;\n")
	}
	fmt.Fprintf(&b, "%%%%\n")
	return b.String()
}

// Spec is a synthesized pair of specifications. Digest identifies the pair;
// identical rule sets always yield the same digest.
type Spec struct {
	Name     string
	Lexer    *LexerSpec
	Grammar  *GrammarSpec
	Digest   string
	Warnings verr.SpecErrors
}

type config struct {
	location bool
}

type Option func(c *config)

// Location instruments the lexer to track line and column spans.
func Location() Option {
	return func(c *config) {
		c.location = true
	}
}

func Synthesize(rs *rule.RuleSet, opts ...Option) (*Spec, error) {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}

	var errs verr.SpecErrors
	entries := make([]*LexEntry, 0, len(rs.TokenRules))
	for i, r := range rs.TokenRules {
		pattern, err := normalizePattern(r.Pattern)
		if err != nil {
			errs = append(errs, &verr.SpecError{
				Cause:      err,
				SourceName: rs.Name + ": tokens",
				Row:        r.Row,
			})
			continue
		}
		entries = append(entries, &LexEntry{
			Kind:        kindName(i, r),
			Pattern:     pattern,
			Source:      r.Pattern,
			Token:       r.Token,
			Discard:     r.Discard,
			DiscardName: r.DiscardName,
			Row:         r.Row,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	lex := &LexerSpec{
		Name:     rs.Name,
		Start:    rs.Start,
		Location: c.location,
		Entries:  entries,
	}
	gram := &GrammarSpec{
		Name:        rs.Name,
		Start:       rs.Start,
		Tokens:      rs.Tokens,
		Precedences: rs.Precedences,
		Productions: rs.Productions,
	}

	h := sha256.New()
	h.Write([]byte(lex.Text()))
	h.Write([]byte{0})
	h.Write([]byte(gram.Text()))

	return &Spec{
		Name:     rs.Name,
		Lexer:    lex,
		Grammar:  gram,
		Digest:   hex.EncodeToString(h.Sum(nil)),
		Warnings: rs.Warnings,
	}, nil
}

// kindName derives a lexer kind name from the position of the rule, so two
// rules emitting the same token stay distinct.
func kindName(i int, r *rule.TokenRule) string {
	suffix := "skip"
	switch {
	case r.Discard && r.DiscardName != "":
		suffix = "discard"
	case !r.Discard:
		suffix = strings.ToLower(r.Token)
	}
	return fmt.Sprintf("r%v_%v", i+1, suffix)
}
