package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nihei9/rulegen/compressor"
	"github.com/nihei9/rulegen/grammar"
	spec "github.com/nihei9/rulegen/spec/grammar"
	"github.com/nihei9/rulegen/synth"
)

type buildConfig struct {
	compressionLevel int
	keepDir          string
	cache            *DiskCache
	logger           *slog.Logger
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	c := &buildConfig{
		compressionLevel: compressor.LevelMax,
		logger:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type BuildOption func(c *buildConfig)

// CompressionLevel selects how the parsing tables are stored. Every level
// drives the parser to the same result.
func CompressionLevel(lv int) BuildOption {
	return func(c *buildConfig) {
		c.compressionLevel = lv
	}
}

// KeepFiles writes the rendered specifications, the compiled grammar, and the
// report to dir. The files are written when the build fails on conflicts too.
func KeepFiles(dir string) BuildOption {
	return func(c *buildConfig) {
		c.keepDir = dir
	}
}

// WithDiskCache loads a compiled grammar from the cache instead of compiling
// when the digest matches, and stores every grammar it compiles.
func WithDiskCache(cache *DiskCache) BuildOption {
	return func(c *buildConfig) {
		c.cache = cache
	}
}

func WithLogger(logger *slog.Logger) BuildOption {
	return func(c *buildConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Build compiles a synthesized specification into an engine. A failed build
// produces no engine and stores nothing in the disk cache.
func Build(s *synth.Spec, opts ...BuildOption) (*Engine, error) {
	c := newBuildConfig(opts)
	logger := c.logger.With(slog.String("grammar", s.Name))

	for _, w := range s.Warnings {
		logger.Warn(w.Cause.Error(), slog.String("symbol", w.Detail), slog.String("source", w.SourceName))
	}

	if c.keepDir != "" {
		if err := writeSpecs(c.keepDir, s); err != nil {
			return nil, fmt.Errorf("cannot keep the specifications: %w", err)
		}
	}

	if c.cache != nil {
		cg, report, ok, err := c.cache.Get(s.Name, s.Digest)
		if err != nil {
			logger.Warn("ignore a broken cache entry", slog.Any("error", err))
		}
		if ok && cg.Location == s.Lexer.Location {
			logger.Info("cache hit", slog.String("digest", s.Digest))
			if c.keepDir != "" {
				if err := writeCompiled(c.keepDir, s.Name, cg, report); err != nil {
					return nil, fmt.Errorf("cannot keep the compiled grammar: %w", err)
				}
			}
			return newEngine(cg, report), nil
		}
	}

	start := time.Now()
	gram, err := grammar.NewGrammar(s)
	if err != nil {
		return nil, err
	}
	cg, report, err := grammar.Compile(gram, grammar.CompressionLevel(c.compressionLevel))
	if c.keepDir != "" && (cg != nil || report != nil) {
		if wErr := writeCompiled(c.keepDir, s.Name, cg, report); wErr != nil {
			return nil, fmt.Errorf("cannot keep the compiled grammar: %w", wErr)
		}
	}
	if err != nil {
		return nil, err
	}
	logger.Info("compile",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("states", cg.Syntactic.StateCount),
		slog.Int("terminals", cg.Syntactic.TerminalCount),
		slog.Int("nonterminals", cg.Syntactic.NonTerminalCount))

	if c.cache != nil {
		if err := c.cache.Put(cg, report); err != nil {
			logger.Warn("cannot store the compiled grammar", slog.Any("error", err))
		}
	}

	return newEngine(cg, report), nil
}

func writeSpecs(dir string, s *synth.Spec) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, s.Name+".lex"), []byte(s.Lexer.Text()), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, s.Name+".grammar"), []byte(s.Grammar.Text()), 0o644)
}

// writeCompiled writes <name>.json and <name>-report.json. A nil argument
// skips its file.
func writeCompiled(dir string, name string, cg *spec.CompiledGrammar, report *spec.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if cg != nil {
		if err := writeJSONFile(filepath.Join(dir, name+".json"), cg); err != nil {
			return err
		}
	}
	if report != nil {
		if err := writeJSONFile(filepath.Join(dir, name+"-report.json"), report); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeJSON(f, v)
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%v\n", string(b))
	return err
}
