// Package rulegen builds parsers from rule tables. A definition pairs a lexer
// table with handlers that each declare a grammar fragment; the parser calls
// the handlers bottom-up and returns what the start handler produces.
package rulegen

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nihei9/rulegen/compressor"
	"github.com/nihei9/rulegen/engine"
	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/synth"
)

// DefaultRegistry holds the engines of parsers created without WithRegistry.
var DefaultRegistry = engine.NewRegistry()

type config struct {
	keepDir          string
	location         bool
	verbose          bool
	debug            bool
	logger           *slog.Logger
	registry         *engine.Registry
	cacheDir         string
	compressionLevel int
	stdin            io.Reader
}

type Option func(c *config) error

// KeepFiles writes the intermediate build artifacts to dir.
func KeepFiles(dir string) Option {
	return func(c *config) error {
		if dir == "" {
			return fmt.Errorf("KeepFiles needs a directory")
		}
		c.keepDir = dir
		return nil
	}
}

// ReturnLocation makes handlers receive source.Token values carrying spans
// instead of bare strings.
func ReturnLocation() Option {
	return func(c *config) error {
		c.location = true
		return nil
	}
}

// Verbose logs build and run timings at info level.
func Verbose() Option {
	return func(c *config) error {
		c.verbose = true
		return nil
	}
}

// Debug traces every shift and reduction at debug level. It implies Verbose.
func Debug() Option {
	return func(c *config) error {
		c.verbose = true
		c.debug = true
		return nil
	}
}

// WithLogger sends the verbose and debug output to logger instead of
// standard error.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

func WithRegistry(r *engine.Registry) Option {
	return func(c *config) error {
		if r == nil {
			return fmt.Errorf("WithRegistry needs a registry")
		}
		c.registry = r
		return nil
	}
}

// WithDiskCache reuses compiled grammars stored under dir by earlier
// processes.
func WithDiskCache(dir string) Option {
	return func(c *config) error {
		c.cacheDir = dir
		return nil
	}
}

func WithCompressionLevel(lv int) Option {
	return func(c *config) error {
		if lv < compressor.LevelNone || lv > compressor.LevelMax {
			return fmt.Errorf("compression level must be between %v and %v; passed: %v", compressor.LevelNone, compressor.LevelMax, lv)
		}
		c.compressionLevel = lv
		return nil
	}
}

// WithStdin replaces the input Run reads when no name is given.
func WithStdin(r io.Reader) Option {
	return func(c *config) error {
		c.stdin = r
		return nil
	}
}

// Parser runs one definition. Runs are serialized; a Parser is safe for
// concurrent use but never parses two inputs at once.
type Parser struct {
	mu       sync.Mutex
	name     string
	engine   *engine.Engine
	handlers map[string]rule.HandlerFunc
	discards map[string]rule.DiscardFunc
	config   *config
	logger   *slog.Logger
	tracer   *slog.Logger
}

// New validates a definition and obtains its engine from the registry,
// building it on first use.
func New(def *rule.Definition, opts ...Option) (*Parser, error) {
	c := &config{
		registry:         DefaultRegistry,
		compressionLevel: compressor.LevelMax,
		stdin:            os.Stdin,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	logger := newLogger(c)

	start := time.Now()
	rs, err := rule.Extract(def)
	if err != nil {
		return nil, err
	}
	var synthOpts []synth.Option
	if c.location {
		synthOpts = append(synthOpts, synth.Location())
	}
	s, err := synth.Synthesize(rs, synthOpts...)
	if err != nil {
		return nil, err
	}
	logger.Info("synthesize", slog.String("grammar", s.Name), slog.String("digest", s.Digest))

	buildOpts := []engine.BuildOption{
		engine.CompressionLevel(c.compressionLevel),
		engine.WithLogger(logger),
	}
	if c.keepDir != "" {
		buildOpts = append(buildOpts, engine.KeepFiles(c.keepDir))
	}
	if c.cacheDir != "" {
		cache, err := engine.OpenDiskCache(c.cacheDir)
		if err != nil {
			return nil, err
		}
		buildOpts = append(buildOpts, engine.WithDiskCache(cache))
	}
	e, err := c.registry.GetOrBuild(s, buildOpts...)
	if err != nil {
		return nil, err
	}
	logger.Info("instantiate parser", slog.String("grammar", s.Name), slog.Duration("elapsed", time.Since(start)))

	return &Parser{
		name:     s.Name,
		engine:   e,
		handlers: rs.Handlers,
		discards: rs.Discards,
		config:   c,
		logger:   logger,
		tracer:   newTracer(c),
	}, nil
}

func newLogger(c *config) *slog.Logger {
	if !c.verbose {
		return slog.New(slog.DiscardHandler)
	}
	if c.logger != nil {
		return c.logger
	}
	level := slog.LevelInfo
	if c.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// newTracer returns the logger traces go to when a run asks for them without
// naming one.
func newTracer(c *config) *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type runConfig struct {
	trace  bool
	tracer *slog.Logger
}

type RunOption func(c *runConfig)

// Trace traces every shift and reduction of one run at debug level, whether
// or not the parser was created with Debug.
func Trace() RunOption {
	return func(c *runConfig) {
		c.tracer = nil
		c.trace = true
	}
}

// TraceTo is Trace sending the trace to logger.
func TraceTo(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.tracer = logger
		c.trace = logger != nil
	}
}

func (p *Parser) Engine() *engine.Engine {
	return p.engine
}

// Run parses the named file, or the standard input when name is empty.
func (p *Parser) Run(name string, opts ...RunOption) (any, error) {
	if name == "" {
		return p.run("<stdin>", p.config.stdin, opts)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cannot open the input: %w", err)
	}
	defer f.Close()
	return p.run(name, f, opts)
}

// RunReader parses r.
func (p *Parser) RunReader(r io.Reader, opts ...RunOption) (any, error) {
	return p.run("<reader>", r, opts)
}

func (p *Parser) run(name string, r io.Reader, runOpts []RunOption) (any, error) {
	rc := &runConfig{}
	for _, opt := range runOpts {
		opt(rc)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	opts := []engine.RunOption{
		engine.Discards(p.discards),
	}
	switch {
	case rc.trace && rc.tracer != nil:
		opts = append(opts, engine.Trace(rc.tracer))
	case rc.trace:
		opts = append(opts, engine.Trace(p.tracer))
	case p.config.debug:
		opts = append(opts, engine.Trace(p.logger))
	}

	start := time.Now()
	v, err := p.engine.Run(r, p.handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}
	p.logger.Info("run", slog.String("grammar", p.name), slog.String("input", name), slog.Duration("elapsed", time.Since(start)))
	return v, nil
}
