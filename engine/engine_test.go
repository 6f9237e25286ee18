package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nihei9/rulegen/driver"
	"github.com/nihei9/rulegen/grammar"
	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/source"
	"github.com/nihei9/rulegen/synth"
)

const listTokens = `
[a-z]+  = ID
,       = COMMA
[ \n]+  = _
`

const listRules = `
list
    : list COMMA ID
    | ID
`

func list(nonterminal string, alt int, names []string, values []any) (any, error) {
	if alt == 0 {
		id, _ := source.Text(values[2])
		return append(values[0].([]string), id), nil
	}
	id, _ := source.Text(values[0])
	return []string{id}, nil
}

func listDefinition(name string) *rule.Definition {
	return &rule.Definition{
		Name:   name,
		Tokens: listTokens,
		Handlers: []*rule.Handler{
			{
				Rules: listRules,
				Start: true,
				Func:  list,
			},
		},
	}
}

func synthesize(t *testing.T, def *rule.Definition, opts ...synth.Option) (*synth.Spec, map[string]rule.HandlerFunc) {
	t.Helper()

	rs, err := rule.Extract(def)
	if err != nil {
		t.Fatal(err)
	}
	s, err := synth.Synthesize(rs, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, rs.Handlers
}

func runList(t *testing.T, e *Engine, handlers map[string]rule.HandlerFunc, src string, opts ...RunOption) []string {
	t.Helper()

	v, err := e.Run(strings.NewReader(src), handlers, opts...)
	if err != nil {
		t.Fatal(err)
	}
	ids, ok := v.([]string)
	if !ok {
		t.Fatalf("unexpected value: %T", v)
	}
	return ids
}

func TestBuild(t *testing.T) {
	s, handlers := synthesize(t, listDefinition("list"))
	e, err := Build(s)
	if err != nil {
		t.Fatal(err)
	}
	if e.Name() != "list" || e.Digest() != s.Digest || e.Location() {
		t.Fatalf("unexpected engine: %v, %v, %v", e.Name(), e.Digest(), e.Location())
	}
	if e.Grammar() == nil || e.Report() == nil {
		t.Fatal("an engine must hold its grammar and report")
	}

	// An engine serves any number of sequential runs.
	for _, src := range []string{"a, b, c", "x", "a,\nb"} {
		ids := runList(t, e, handlers, src)
		if strings.Join(ids, ",") != strings.ReplaceAll(strings.ReplaceAll(src, " ", ""), "\n", "") {
			t.Fatalf("unexpected value: %v", ids)
		}
	}

	if _, err := e.Run(strings.NewReader("a,"), handlers); err == nil {
		t.Fatal("an incomplete input must fail")
	}
	ids := runList(t, e, handlers, "p, q")
	if len(ids) != 2 {
		t.Fatalf("a failed run must not affect later runs: %v", ids)
	}
}

func TestBuild_CompressionLevel(t *testing.T) {
	s, handlers := synthesize(t, listDefinition("list"))
	for _, lv := range []int{0, 1, 2} {
		e, err := Build(s, CompressionLevel(lv))
		if err != nil {
			t.Fatal(err)
		}
		if e.Grammar().Syntactic.Action.Level != lv {
			t.Fatalf("unexpected compression level: %v", e.Grammar().Syntactic.Action.Level)
		}
		ids := runList(t, e, handlers, "a, b")
		if strings.Join(ids, " ") != "a b" {
			t.Fatalf("unexpected value at level %v: %v", lv, ids)
		}
	}
}

func TestBuild_KeepFiles(t *testing.T) {
	tests := []struct {
		caption  string
		def      *rule.Definition
		fails    bool
		expected []string
		missing  []string
	}{
		{
			caption:  "a successful build keeps all artifacts",
			def:      listDefinition("list"),
			expected: []string{"list.lex", "list.grammar", "list.json", "list-report.json"},
		},
		{
			caption: "a build failing on conflicts keeps the report",
			def: &rule.Definition{
				Name: "ambiguous",
				Tokens: `
[a-z]+ = ID
\+     = PLUS
`,
				Handlers: []*rule.Handler{
					{
						Rules: `
expr
    : expr PLUS expr
    | ID
`,
						Start: true,
						Func:  list,
					},
				},
			},
			fails:    true,
			expected: []string{"ambiguous.lex", "ambiguous.grammar", "ambiguous-report.json"},
			missing:  []string{"ambiguous.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			dir := t.TempDir()
			s, _ := synthesize(t, tt.def)
			_, err := Build(s, KeepFiles(dir))
			if tt.fails {
				var cErrs grammar.ConflictErrors
				if !errors.As(err, &cErrs) {
					t.Fatalf("conflicts must fail the build; got: %v", err)
				}
				var cErr *grammar.ConflictError
				if !errors.As(err, &cErr) || cErr.Kind != "shift/reduce" {
					t.Fatalf("each conflict must be inspectable; got: %v", err)
				}
			} else if err != nil {
				t.Fatal(err)
			}
			for _, name := range tt.expected {
				if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
					t.Fatalf("%v must be kept: %v", name, err)
				}
			}
			for _, name := range tt.missing {
				if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
					t.Fatalf("%v must not exist: %v", name, err)
				}
			}
		})
	}
}

func TestBuild_KeepFilesDoNotAffectResults(t *testing.T) {
	s, handlers := synthesize(t, listDefinition("list"))
	plain, err := Build(s)
	if err != nil {
		t.Fatal(err)
	}
	kept, err := Build(s, KeepFiles(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	a := runList(t, plain, handlers, "a, b, c")
	b := runList(t, kept, handlers, "a, b, c")
	if strings.Join(a, " ") != strings.Join(b, " ") {
		t.Fatalf("results differ: %v, %v", a, b)
	}
}

func TestBuild_UnusedSymbols(t *testing.T) {
	def := listDefinition("list")
	def.Tokens += ";       = SEMI\n"
	s, handlers := synthesize(t, def)

	var logs bytes.Buffer
	e, err := Build(s, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	if err != nil {
		t.Fatalf("an unused token must not fail the build: %v", err)
	}
	for _, want := range []string{"level=WARN", "unused token", "symbol=SEMI"} {
		if !strings.Contains(logs.String(), want) {
			t.Fatalf("the build log lacks %q:\n%v", want, logs.String())
		}
	}

	if ids := runList(t, e, handlers, "a, b"); strings.Join(ids, " ") != "a b" {
		t.Fatalf("unexpected result: %v", ids)
	}
	_, err = e.Run(strings.NewReader("a;"), handlers)
	var synErr *driver.SyntaxError
	if !errors.As(err, &synErr) || synErr.Terminal != "SEMI" {
		t.Fatalf("an unused token in the input must be a syntax error; got: %v", err)
	}
}

func TestEngine_Run_Location(t *testing.T) {
	var spans []source.Span
	h := func(nonterminal string, alt int, names []string, values []any) (any, error) {
		for _, v := range values {
			if tok, ok := v.(source.Token); ok && tok.Text != "," {
				spans = append(spans, tok.Span)
			}
		}
		return list(nonterminal, alt, names, values)
	}
	def := listDefinition("list")
	def.Handlers[0].Func = h
	s, handlers := synthesize(t, def, synth.Location())
	e, err := Build(s)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Location() {
		t.Fatal("the engine must track locations")
	}
	runList(t, e, handlers, "ab,\n cd")

	expected := []source.Span{
		{Start: source.Position{Line: 1, Column: 1}, End: source.Position{Line: 1, Column: 3}},
		{Start: source.Position{Line: 2, Column: 2}, End: source.Position{Line: 2, Column: 4}},
	}
	if len(spans) != len(expected) {
		t.Fatalf("unexpected spans: %v", spans)
	}
	for i, e := range expected {
		if spans[i] != e {
			t.Fatalf("unexpected span #%v; want: %v, got: %v", i, e, spans[i])
		}
	}
}

func TestEngine_Run_Trace(t *testing.T) {
	s, handlers := synthesize(t, listDefinition("list"))
	e, err := Build(s)
	if err != nil {
		t.Fatal(err)
	}

	var traced, silent bytes.Buffer
	tracer := slog.New(slog.NewTextHandler(&traced, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quiet := slog.New(slog.NewTextHandler(&silent, &slog.HandlerOptions{Level: slog.LevelInfo}))
	a := runList(t, e, handlers, "a, b", Trace(tracer))
	b := runList(t, e, handlers, "a, b", Trace(quiet))
	if strings.Join(a, " ") != strings.Join(b, " ") {
		t.Fatalf("tracing must not change results: %v, %v", a, b)
	}
	for _, msg := range []string{"msg=shift", "msg=reduce", "msg=accept", "terminal=COMMA"} {
		if !strings.Contains(traced.String(), msg) {
			t.Fatalf("the trace lacks %q:\n%v", msg, traced.String())
		}
	}
	if silent.Len() != 0 {
		t.Fatalf("nothing must be logged above debug level:\n%v", silent.String())
	}
}

func TestEngine_Run_SyntaxError(t *testing.T) {
	s, handlers := synthesize(t, listDefinition("list"))
	e, err := Build(s)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Run(strings.NewReader("a b"), handlers)
	var synErr *driver.SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("a syntax error must occur; got: %v", err)
	}
	if synErr.Row != 1 || synErr.Col != 3 || synErr.Terminal != "ID" {
		t.Fatalf("unexpected syntax error: %+v", synErr)
	}
}
