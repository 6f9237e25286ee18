package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/nihei9/rulegen/compressor"
	"github.com/nihei9/rulegen/engine"
	verr "github.com/nihei9/rulegen/error"
	"github.com/nihei9/rulegen/grammar"
	"github.com/nihei9/rulegen/rule"
	spec "github.com/nihei9/rulegen/spec/grammar"
	"github.com/nihei9/rulegen/synth"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var compileFlags = struct {
	output   *string
	jobs     *int
	level    *int
	location *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "compile <rule file path>...",
		Short: "Compile rule files into parsing tables",
		Long: `compile writes <name>.lex, <name>.grammar, <name>.json, and <name>-report.json
to the output directory for each rule file. The report is written even when
the rules contain unresolved conflicts.`,
		Example: `  rulegen compile expr.toml json.toml -o out`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runCompile,
	}
	compileFlags.output = cmd.Flags().StringP("output", "o", ".", "output directory")
	compileFlags.jobs = cmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "number of rule files compiled at once")
	compileFlags.level = cmd.Flags().Int("compression-level", compressor.LevelMax, "compression level of the parsing tables (0-2)")
	compileFlags.location = cmd.Flags().Bool("location", false, "track token locations")
	rootCmd.AddCommand(cmd)
}

type compileResult struct {
	name     string
	states   int
	resolved int
}

func runCompile(cmd *cobra.Command, args []string) error {
	if *compileFlags.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(*compileFlags.jobs, len(args)))

	results := make([]*compileResult, len(args))
	for i, path := range args {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := compileFile(path)
			if err != nil {
				return fmt.Errorf("%v: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		fmt.Fprintf(os.Stdout, "%v: %v states", res.name, res.states)
		if res.resolved > 0 {
			fmt.Fprintf(os.Stdout, ", %v conflicts resolved by precedence", res.resolved)
		}
		fmt.Fprintf(os.Stdout, "\n")
	}
	return nil
}

func compileFile(path string) (*compileResult, error) {
	def, err := readDefinition(path)
	if err != nil {
		return nil, err
	}
	rs, err := rule.Extract(def)
	if err != nil {
		if specErrs, ok := err.(verr.SpecErrors); ok {
			for _, e := range specErrs {
				e.SourceName = path + ": " + e.SourceName
			}
		}
		return nil, err
	}
	for _, w := range rs.Warnings {
		fmt.Fprintf(os.Stderr, "%v %v: %v\n", warningLabel.Sprint("warning:"), path, w)
	}
	var opts []synth.Option
	if *compileFlags.location {
		opts = append(opts, synth.Location())
	}
	s, err := synth.Synthesize(rs, opts...)
	if err != nil {
		return nil, err
	}
	e, err := engine.Build(s,
		engine.KeepFiles(*compileFlags.output),
		engine.CompressionLevel(*compileFlags.level))
	if err != nil {
		return nil, err
	}

	return &compileResult{
		name:     s.Name,
		states:   e.Grammar().Syntactic.StateCount,
		resolved: countResolvedConflicts(e.Report()),
	}, nil
}

func countResolvedConflicts(report *spec.Report) int {
	var n int
	for _, s := range report.States {
		for _, c := range s.SRConflict {
			if c.ResolvedBy == grammar.ResolvedByPrec.Int() || c.ResolvedBy == grammar.ResolvedByAssoc.Int() {
				n++
			}
		}
	}
	return n
}
