package rule

import (
	"regexp"
	"strings"

	verr "github.com/nihei9/rulegen/error"
)

var (
	tokenNameRE   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(_[A-Za-z0-9]+)*$`)
	symbolNameRE  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	discardNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// parseTokenTable reads a lexer table. Each line is split on its last '='
// because the right-hand side never contains one while a pattern may.
func parseTokenTable(src string) ([]*TokenRule, verr.SpecErrors) {
	var rules []*TokenRule
	var errs verr.SpecErrors
	for i, line := range strings.Split(src, "\n") {
		row := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idx := strings.LastIndex(line, "=")
		if idx < 0 {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrMalformedTokenRule,
				Detail: line,
				Row:    row,
			})
			continue
		}
		pattern := strings.TrimSpace(line[:idx])
		rhs := strings.TrimSpace(line[idx+1:])
		if pattern == "" {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrEmptyPattern,
				Detail: line,
				Row:    row,
			})
			continue
		}
		if rhs == "" {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrMalformedTokenRule,
				Detail: line,
				Row:    row,
			})
			continue
		}

		if strings.HasPrefix(rhs, "_") {
			name := rhs[1:]
			if name != "" && !discardNameRE.MatchString(name) {
				errs = append(errs, &verr.SpecError{
					Cause:  semErrInvalidDiscardName,
					Detail: rhs,
					Row:    row,
				})
				continue
			}
			rules = append(rules, &TokenRule{
				Pattern:     pattern,
				Discard:     true,
				DiscardName: name,
				Row:         row,
			})
			continue
		}

		if !tokenNameRE.MatchString(rhs) {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrInvalidTokenName,
				Detail: rhs,
				Row:    row,
			})
			continue
		}
		rules = append(rules, &TokenRule{
			Pattern: pattern,
			Token:   rhs,
			Row:     row,
		})
	}

	return rules, errs
}

// parseProductionTable reads one grammar fragment:
//
//	value
//	    : string
//	    | INTEGER
func parseProductionTable(src string) (*Production, verr.SpecErrors) {
	var prod *Production
	var errs verr.SpecErrors
	seen := map[string]struct{}{}
	for i, line := range strings.Split(src, "\n") {
		row := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if prod == nil {
			if !symbolNameRE.MatchString(line) {
				return nil, verr.SpecErrors{
					{
						Cause:  semErrNoProductionName,
						Detail: line,
						Row:    row,
					},
				}
			}
			prod = &Production{
				Nonterminal: line,
			}
			continue
		}

		switch line[0] {
		case ':':
			if len(prod.Alternatives) > 0 {
				errs = append(errs, &verr.SpecError{
					Cause: semErrStrayColon,
					Row:   row,
				})
				continue
			}
		case '|':
			if len(prod.Alternatives) == 0 {
				errs = append(errs, &verr.SpecError{
					Cause: semErrNoColon,
					Row:   row,
				})
				continue
			}
		default:
			errs = append(errs, &verr.SpecError{
				Cause:  semErrMalformedAlt,
				Detail: line,
				Row:    row,
			})
			continue
		}

		syms := strings.Fields(line[1:])
		ok := true
		for _, sym := range syms {
			if !symbolNameRE.MatchString(sym) {
				errs = append(errs, &verr.SpecError{
					Cause:  semErrInvalidSymbolName,
					Detail: sym,
					Row:    row,
				})
				ok = false
			}
		}
		if !ok {
			continue
		}

		key := strings.Join(syms, " ")
		if _, dup := seen[key]; dup {
			errs = append(errs, &verr.SpecError{
				Cause:  semErrDuplicateAlt,
				Detail: altText(prod.Nonterminal, syms),
				Row:    row,
			})
			continue
		}
		seen[key] = struct{}{}

		prod.Alternatives = append(prod.Alternatives, &Alternative{
			Symbols: syms,
		})
	}
	if prod == nil {
		return nil, verr.SpecErrors{
			{
				Cause: semErrNoProductionName,
			},
		}
	}
	if len(prod.Alternatives) == 0 && len(errs) == 0 {
		errs = append(errs, &verr.SpecError{
			Cause:  semErrNoAlternative,
			Detail: prod.Nonterminal,
		})
	}

	return prod, errs
}

func altText(lhs string, syms []string) string {
	if len(syms) == 0 {
		return lhs + " → ε"
	}
	return lhs + " → " + strings.Join(syms, " ")
}
