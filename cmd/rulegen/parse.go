package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/nihei9/rulegen"
	"github.com/nihei9/rulegen/driver"
	"github.com/spf13/cobra"
)

var parseFlags = struct {
	source   *string
	location *bool
	json     *bool
	cache    *string
	keep     *string
	verbose  *bool
	debug    *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:     "parse <rule file path>",
		Short:   "Parse a text stream and print its syntax tree",
		Example: `  cat src | rulegen parse expr.toml`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}
	parseFlags.source = cmd.Flags().StringP("source", "s", "", "source file path (default stdin)")
	parseFlags.location = cmd.Flags().Bool("location", false, "attach spans to the terminals of the tree")
	parseFlags.json = cmd.Flags().Bool("json", false, "print the tree in JSON")
	parseFlags.cache = cmd.Flags().String("cache", "", "directory of the compiled grammar cache")
	parseFlags.keep = cmd.Flags().StringP("keep-files", "k", "", "directory to keep the intermediate files in")
	parseFlags.verbose = cmd.Flags().BoolP("verbose", "v", false, "log build and run timings")
	parseFlags.debug = cmd.Flags().BoolP("debug", "d", false, "trace every shift and reduction")
	rootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) (retErr error) {
	defer func() {
		v := recover()
		if v != nil {
			retErr = fmt.Errorf("an unexpected error occurred: %v", v)
			fmt.Fprintf(os.Stderr, "%v:\n%v", retErr, string(debug.Stack()))
		}
	}()

	def, err := readDefinition(args[0])
	if err != nil {
		return err
	}

	opts := []rulegen.Option{
		rulegen.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	}
	if *parseFlags.location {
		opts = append(opts, rulegen.ReturnLocation())
	}
	if *parseFlags.cache != "" {
		opts = append(opts, rulegen.WithDiskCache(*parseFlags.cache))
	}
	if *parseFlags.keep != "" {
		opts = append(opts, rulegen.KeepFiles(*parseFlags.keep))
	}
	if *parseFlags.verbose {
		opts = append(opts, rulegen.Verbose())
	}
	if *parseFlags.debug {
		opts = append(opts, rulegen.Debug())
	}
	p, err := rulegen.New(def, opts...)
	if err != nil {
		return err
	}

	v, err := p.Run(*parseFlags.source)
	if err != nil {
		return err
	}
	tree, ok := v.(*driver.Node)
	if !ok {
		return fmt.Errorf("the start handler returned %T instead of a tree", v)
	}

	if *parseFlags.json {
		b, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%v\n", string(b))
		return nil
	}
	driver.PrintTree(os.Stdout, tree)
	return nil
}
