package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/nihei9/rulegen/grammar"
	spec "github.com/nihei9/rulegen/spec/grammar"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "show <report file path>",
		Short:   "Print a report in a readable format",
		Example: `  rulegen show expr-report.json`,
		Args:    cobra.ExactArgs(1),
		RunE:    runShow,
	}
	rootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, report)
}

func readReport(path string) (*spec.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open the report %s: %w", path, err)
	}
	defer f.Close()

	report := &spec.Report{}
	if err := json.NewDecoder(f).Decode(report); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return report, nil
}

const reportTemplate = `# Conflicts

{{ printConflictSummary . }}

# Terminals

{{ range slice .Terminals 1 -}}
{{ printTerminal . }}
{{ end }}
# Productions

{{ range slice .Productions 1 -}}
{{ printProduction . }}
{{ end }}
# States
{{ range .States }}
## State {{ .Number }}

{{ range .Kernel -}}
{{ printItem . }}
{{ end }}
{{ range .Shift -}}
{{ printShift . }}
{{ end -}}
{{ range .Reduce -}}
{{ printReduce . }}
{{ end -}}
{{ range .GoTo -}}
{{ printGoTo . }}
{{ end }}
{{ range .SRConflict -}}
{{ printSRConflict . }}
{{ end -}}
{{ range .RRConflict -}}
{{ printRRConflict . }}
{{ end -}}
{{ end }}`

func assocName(assoc string) string {
	switch assoc {
	case "l":
		return "left"
	case "r":
		return "right"
	case "n":
		return "nonassoc"
	}
	return "no"
}

func writeReport(w io.Writer, report *spec.Report) error {
	termName := func(sym int) string {
		return report.Terminals[sym].Name
	}
	nonTermName := func(sym int) string {
		return report.NonTerminals[sym].Name
	}
	rhsText := func(rhs []int, dot int) string {
		var b strings.Builder
		for i, e := range rhs {
			if i == dot {
				fmt.Fprintf(&b, " ・")
			}
			if e > 0 {
				fmt.Fprintf(&b, " %v", termName(e))
			} else {
				fmt.Fprintf(&b, " %v", nonTermName(e*-1))
			}
		}
		if dot >= 0 && dot >= len(rhs) {
			fmt.Fprintf(&b, " ・")
		}
		return b.String()
	}
	precText := func(prec int) string {
		if prec == 0 {
			return " -"
		}
		return fmt.Sprintf("%2v", prec)
	}
	assocText := func(assoc string) string {
		if assoc == "" {
			return "-"
		}
		return assoc
	}

	fns := template.FuncMap{
		"printConflictSummary": func(report *spec.Report) string {
			var unresolved, resolved int
			for _, s := range report.States {
				for _, c := range s.SRConflict {
					if c.ResolvedBy == grammar.ResolvedByShift.Int() {
						unresolved++
					} else {
						resolved++
					}
				}
				for _, c := range s.RRConflict {
					if c.ResolvedBy == grammar.ResolvedByProdOrder.Int() {
						unresolved++
					} else {
						resolved++
					}
				}
			}

			var b strings.Builder
			if unresolved == 1 {
				fmt.Fprintf(&b, "%v conflict remains unresolved.\n", unresolved)
			} else if unresolved > 1 {
				fmt.Fprintf(&b, "%v conflicts remain unresolved.\n", unresolved)
			}
			if resolved == 1 {
				fmt.Fprintf(&b, "%v conflict occurred and resolved by precedence.\n", resolved)
			} else if resolved > 1 {
				fmt.Fprintf(&b, "%v conflicts occurred and resolved by precedence.\n", resolved)
			}
			if unresolved == 0 && resolved == 0 {
				fmt.Fprintf(&b, "No conflict")
			}
			return b.String()
		},
		"printTerminal": func(term *spec.Terminal) string {
			s := fmt.Sprintf("%4v %v %v %v", term.Number, precText(term.Precedence), assocText(term.Associativity), term.Name)
			if len(term.Patterns) > 0 {
				s += fmt.Sprintf(" (%v)", strings.Join(term.Patterns, " | "))
			}
			return s
		},
		"printProduction": func(prod *spec.Production) string {
			rhs := rhsText(prod.RHS, -1)
			if rhs == "" {
				rhs = " ε"
			}
			return fmt.Sprintf("%4v %v %v %v →%v", prod.Number, precText(prod.Precedence), assocText(prod.Associativity), nonTermName(prod.LHS), rhs)
		},
		"printItem": func(item *spec.Item) string {
			prod := report.Productions[item.Production]
			return fmt.Sprintf("%4v %v →%v", prod.Number, nonTermName(prod.LHS), rhsText(prod.RHS, item.Dot))
		},
		"printShift": func(tran *spec.Transition) string {
			return fmt.Sprintf("shift  %4v on %v", tran.State, termName(tran.Symbol))
		},
		"printReduce": func(reduce *spec.Reduce) string {
			names := make([]string, len(reduce.LookAhead))
			for i, a := range reduce.LookAhead {
				names[i] = termName(a)
			}
			return fmt.Sprintf("reduce %4v on %v", reduce.Production, strings.Join(names, ", "))
		},
		"printGoTo": func(tran *spec.Transition) string {
			return fmt.Sprintf("goto   %4v on %v", tran.State, nonTermName(tran.Symbol))
		},
		"printSRConflict": func(sr *spec.SRConflict) string {
			adopted := "error"
			switch {
			case sr.AdoptedState != nil:
				adopted = fmt.Sprintf("shift %v", *sr.AdoptedState)
			case sr.AdoptedProduction != nil:
				adopted = fmt.Sprintf("reduce %v", *sr.AdoptedProduction)
			}
			var resolvedBy string
			switch sr.ResolvedBy {
			case grammar.ResolvedByPrec.Int():
				if sr.AdoptedState != nil {
					resolvedBy = fmt.Sprintf("symbol %v has higher precedence than production %v", termName(sr.Symbol), sr.Production)
				} else {
					resolvedBy = fmt.Sprintf("production %v has higher precedence than symbol %v", sr.Production, termName(sr.Symbol))
				}
			case grammar.ResolvedByAssoc.Int():
				resolvedBy = fmt.Sprintf("symbol %v and production %v have the same precedence, and symbol %v has %v associativity", termName(sr.Symbol), sr.Production, termName(sr.Symbol), assocName(report.Terminals[sr.Symbol].Associativity))
			case grammar.ResolvedByShift.Int():
				return fmt.Sprintf("shift/reduce conflict (shift %v, reduce %v) on %v: unresolved because symbol %v and production %v define no precedence comparison", sr.State, sr.Production, termName(sr.Symbol), termName(sr.Symbol), sr.Production)
			}
			return fmt.Sprintf("shift/reduce conflict (shift %v, reduce %v) on %v: %v adopted because %v", sr.State, sr.Production, termName(sr.Symbol), adopted, resolvedBy)
		},
		"printRRConflict": func(rr *spec.RRConflict) string {
			return fmt.Sprintf("reduce/reduce conflict (%v, %v) on %v: unresolved because productions %v and %v define no precedence comparison", rr.Production1, rr.Production2, termName(rr.Symbol), rr.Production1, rr.Production2)
		},
	}

	tmpl, err := template.New("").Funcs(fns).Parse(reportTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, report)
}
