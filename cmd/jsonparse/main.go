package main

import (
	stdjson "encoding/json"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/fatih/color"
	"github.com/nihei9/rulegen"
	"github.com/nihei9/rulegen/engine"
	"github.com/nihei9/rulegen/examples/json"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var flags = struct {
	keepFiles *string
	verbose   *bool
	debug     *bool
	cache     *string
	noCache   *bool
}{}

var rootCmd = &cobra.Command{
	Use:   "jsonparse [file path]...",
	Short: "Parse JSON documents with a parser built from a rule table",
	Long: `jsonparse parses each file and compares the result with encoding/json.
It reads the standard input when no file is given.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          run,
}

func init() {
	flags.keepFiles = rootCmd.Flags().StringP("keepfiles", "k", "", "keep the files used in building the parse engine in a directory")
	rootCmd.Flags().Lookup("keepfiles").NoOptDefVal = "."
	flags.verbose = rootCmd.Flags().BoolP("verbose", "v", false, "enable verbose messages while the parser is running")
	flags.debug = rootCmd.Flags().BoolP("debug", "d", false, "enable garrulous debug messages from the parse engine")
	flags.cache = rootCmd.Flags().String("cache", "", "directory of the compiled grammar cache (default $XDG_CACHE_HOME/rulegen)")
	flags.noCache = rootCmd.Flags().Bool("no-cache", false, "compile the grammar without the cache")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if *flags.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []rulegen.Option{
		rulegen.WithLogger(logger),
	}
	if *flags.keepFiles != "" {
		opts = append(opts, rulegen.KeepFiles(*flags.keepFiles))
	}
	if !*flags.noCache {
		dir := *flags.cache
		if dir == "" {
			cache, err := engine.OpenUserDiskCache("rulegen")
			if err != nil {
				return err
			}
			dir = cache.Dir()
		}
		opts = append(opts, rulegen.WithDiskCache(dir))
	}
	if *flags.verbose {
		opts = append(opts, rulegen.Verbose())
	}
	if *flags.debug {
		opts = append(opts, rulegen.Debug())
	}

	p, err := json.New(opts...)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if isTerminal(os.Stdin) {
			fmt.Fprintln(os.Stderr, "(Reading from standard input - please type stuff)")
		}
		v, err := p.Run("")
		if err != nil {
			return err
		}
		return printValue(v)
	}

	for _, path := range args {
		if err := compare(p, path); err != nil {
			return err
		}
	}
	return nil
}

func compare(p *rulegen.Parser, path string) error {
	start := time.Now()
	expected, err := loadWithEncodingJSON(path)
	if err != nil {
		return err
	}
	jsonElapsed := time.Since(start)

	start = time.Now()
	actual, err := p.Run(path)
	if err != nil {
		return err
	}
	parserElapsed := time.Since(start)

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	equal := reflect.DeepEqual(normalize(actual), expected)
	verdict := color.GreenString("equal")
	if !equal {
		verdict = color.RedString("different")
	}
	fmt.Fprintf(os.Stdout, "%v: %v (encoding/json %v, rule parser %v, %.1f kB)\n",
		path, verdict, jsonElapsed, parserElapsed, float64(fi.Size())/1024)
	if !equal {
		return fmt.Errorf("%v: the result differs from encoding/json", path)
	}
	return nil
}

func loadWithEncodingJSON(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var v any
	if err := stdjson.NewDecoder(f).Decode(&v); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return v, nil
}

// normalize converts integers to float64 as encoding/json decodes every
// number.
func normalize(v any) any {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case []any:
		for i, e := range v {
			v[i] = normalize(e)
		}
		return v
	case map[string]any:
		for k, e := range v {
			v[k] = normalize(e)
		}
		return v
	}
	return v
}

func printValue(v any) error {
	b, err := stdjson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%v\n", string(b))
	return nil
}
