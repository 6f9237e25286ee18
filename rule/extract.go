package rule

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	verr "github.com/nihei9/rulegen/error"
)

// A definition name is a lowercase snake_case identifier because the lexer
// compiler takes it as the name of the lexical specification.
var definitionNameRE = regexp.MustCompile(`^[a-z](_?[0-9a-z]+)*$`)

// Extract validates a definition and produces its rule set. Every problem
// found is reported in a single verr.SpecErrors. Unused nonterminals and
// tokens are only reported in RuleSet.Warnings.
func Extract(def *Definition) (*RuleSet, error) {
	var errs verr.SpecErrors

	src := def.Name
	switch {
	case def.Name == "":
		src = "<unnamed>"
		errs = append(errs, &verr.SpecError{
			Cause: semErrNoName,
		})
	case !definitionNameRE.MatchString(def.Name):
		errs = append(errs, &verr.SpecError{
			Cause:  semErrInvalidName,
			Detail: def.Name,
		})
	}

	tokenRules, tokErrs := parseTokenTable(def.Tokens)
	for _, err := range tokErrs {
		err.SourceName = src + ": tokens"
	}
	errs = append(errs, tokErrs...)
	if len(tokenRules) == 0 && len(tokErrs) == 0 {
		errs = append(errs, &verr.SpecError{
			Cause:      semErrNoTokenRule,
			SourceName: src,
		})
	}

	tokens := map[string]struct{}{}
	for _, r := range tokenRules {
		if r.Discard {
			if r.DiscardName == "" {
				continue
			}
			f, ok := def.Discards[r.DiscardName]
			switch {
			case !ok:
				errs = append(errs, &verr.SpecError{
					Cause:      semErrUndefinedDiscard,
					Detail:     r.DiscardName,
					SourceName: src + ": tokens",
					Row:        r.Row,
				})
			case f == nil:
				errs = append(errs, &verr.SpecError{
					Cause:      semErrNilDiscard,
					Detail:     r.DiscardName,
					SourceName: src + ": tokens",
					Row:        r.Row,
				})
			}
			continue
		}
		tokens[r.Token] = struct{}{}
	}

	if len(def.Handlers) == 0 {
		errs = append(errs, &verr.SpecError{
			Cause:      semErrNoHandler,
			SourceName: src,
		})
	}

	var prods []*Production
	nonterminals := map[string]struct{}{}
	handlers := map[string]HandlerFunc{}
	var starts []string
	for i, h := range def.Handlers {
		hsrc := fmt.Sprintf("%v: handler #%v", src, i+1)
		if h.Nonterminal != "" {
			hsrc = fmt.Sprintf("%v: handler %v", src, h.Nonterminal)
		}

		prod, prodErrs := parseProductionTable(h.Rules)
		for _, err := range prodErrs {
			err.SourceName = hsrc
		}
		errs = append(errs, prodErrs...)
		if prod == nil {
			continue
		}

		if h.Nonterminal != "" && h.Nonterminal != prod.Nonterminal {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrHandlerMismatch,
				Detail:     prod.Nonterminal,
				SourceName: hsrc,
			})
			continue
		}
		if _, dup := nonterminals[prod.Nonterminal]; dup {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrDuplicateHandler,
				Detail:     prod.Nonterminal,
				SourceName: hsrc,
			})
			continue
		}
		nonterminals[prod.Nonterminal] = struct{}{}
		if h.Func == nil {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrNilHandlerFunc,
				Detail:     prod.Nonterminal,
				SourceName: hsrc,
			})
		}
		if h.Start {
			starts = append(starts, prod.Nonterminal)
		}
		if len(prodErrs) > 0 {
			continue
		}

		prods = append(prods, prod)
		handlers[prod.Nonterminal] = h.Func
	}

	var start string
	switch len(starts) {
	case 0:
		if len(def.Handlers) > 0 {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrStartCount,
				Detail:     "no handler is marked as the start",
				SourceName: src,
			})
		}
	case 1:
		start = starts[0]
	default:
		errs = append(errs, &verr.SpecError{
			Cause:      semErrStartCount,
			Detail:     strings.Join(starts, ", "),
			SourceName: src,
		})
	}

	for _, prod := range prods {
		if _, ok := tokens[prod.Nonterminal]; ok {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrDuplicateName,
				Detail:     prod.Nonterminal,
				SourceName: src,
			})
		}
		for _, alt := range prod.Alternatives {
			for _, sym := range alt.Symbols {
				_, isTok := tokens[sym]
				_, isNT := nonterminals[sym]
				if !isTok && !isNT {
					errs = append(errs, &verr.SpecError{
						Cause:      semErrUndefinedSym,
						Detail:     sym,
						SourceName: fmt.Sprintf("%v: handler %v", src, prod.Nonterminal),
					})
				}
			}
		}
	}

	var warnings verr.SpecErrors
	if start != "" && len(errs) == 0 {
		warnings = checkReachability(src, start, prods, tokenRules)
	}

	precs, precErrs := checkPrecedences(src, def.Precedences, tokens)
	errs = append(errs, precErrs...)

	if len(errs) > 0 {
		return nil, errs
	}

	tokNames := make([]string, 0, len(tokens))
	for tok := range tokens {
		tokNames = append(tokNames, tok)
	}
	sort.Strings(tokNames)

	discards := map[string]DiscardFunc{}
	for _, r := range tokenRules {
		if r.Discard && r.DiscardName != "" {
			discards[r.DiscardName] = def.Discards[r.DiscardName]
		}
	}

	return &RuleSet{
		Name:        def.Name,
		TokenRules:  tokenRules,
		Tokens:      tokNames,
		Start:       start,
		Productions: prods,
		Precedences: precs,
		Handlers:    handlers,
		Discards:    discards,
		Warnings:    warnings,
	}, nil
}

// checkReachability reports every nonterminal and token that cannot be
// reached from the start symbol. They do not make a definition invalid.
func checkReachability(src, start string, prods []*Production, tokenRules []*TokenRule) verr.SpecErrors {
	byName := map[string]*Production{}
	for _, p := range prods {
		byName[p.Nonterminal] = p
	}

	reached := map[string]struct{}{
		start: {},
	}
	queue := []string{start}
	for len(queue) > 0 {
		p, ok := byName[queue[0]]
		queue = queue[1:]
		if !ok {
			continue
		}
		for _, alt := range p.Alternatives {
			for _, sym := range alt.Symbols {
				if _, ok := reached[sym]; ok {
					continue
				}
				reached[sym] = struct{}{}
				queue = append(queue, sym)
			}
		}
	}

	var errs verr.SpecErrors
	for _, p := range prods {
		if _, ok := reached[p.Nonterminal]; !ok {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrUnusedNonterminal,
				Detail:     p.Nonterminal,
				SourceName: src,
			})
		}
	}
	reported := map[string]struct{}{}
	for _, r := range tokenRules {
		if r.Discard {
			continue
		}
		if _, ok := reached[r.Token]; ok {
			continue
		}
		if _, ok := reported[r.Token]; ok {
			continue
		}
		reported[r.Token] = struct{}{}
		errs = append(errs, &verr.SpecError{
			Cause:      semErrUnusedToken,
			Detail:     r.Token,
			SourceName: src + ": tokens",
			Row:        r.Row,
		})
	}
	return errs
}

func checkPrecedences(src string, groups []*PrecedenceGroup, tokens map[string]struct{}) ([]*PrecedenceGroup, verr.SpecErrors) {
	var errs verr.SpecErrors
	var precs []*PrecedenceGroup
	seen := map[string]struct{}{}
	for i, g := range groups {
		gsrc := fmt.Sprintf("%v: precedence #%v", src, i+1)
		if !g.Assoc.valid() {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrInvalidAssoc,
				Detail:     string(g.Assoc),
				SourceName: gsrc,
			})
		}
		if len(g.Tokens) == 0 {
			errs = append(errs, &verr.SpecError{
				Cause:      semErrEmptyPrecGroup,
				SourceName: gsrc,
			})
		}
		for _, tok := range g.Tokens {
			if _, ok := tokens[tok]; !ok {
				errs = append(errs, &verr.SpecError{
					Cause:      semErrPrecUndefinedToken,
					Detail:     tok,
					SourceName: gsrc,
				})
				continue
			}
			if _, dup := seen[tok]; dup {
				errs = append(errs, &verr.SpecError{
					Cause:      semErrDuplicatePrec,
					Detail:     tok,
					SourceName: gsrc,
				})
				continue
			}
			seen[tok] = struct{}{}
		}
		precs = append(precs, &PrecedenceGroup{
			Assoc:  g.Assoc,
			Tokens: append([]string(nil), g.Tokens...),
		})
	}
	return precs, errs
}
