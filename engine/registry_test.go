package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/nihei9/rulegen/grammar"
	"github.com/nihei9/rulegen/rule"
	"github.com/nihei9/rulegen/synth"
)

func TestRegistry_GetOrBuild(t *testing.T) {
	r := NewRegistry()
	s, handlers := synthesize(t, listDefinition("list"))

	a, err := r.GetOrBuild(s)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.GetOrBuild(s)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("a registry must reuse the engine of a key")
	}
	if r.Len() != 1 {
		t.Fatalf("unexpected registry size: %v", r.Len())
	}
	runList(t, a, handlers, "a, b")

	// Synthesizing the same definition again yields the same digest.
	again, _ := synthesize(t, listDefinition("list"))
	c, err := r.GetOrBuild(again)
	if err != nil {
		t.Fatal(err)
	}
	if c != a {
		t.Fatal("an identical definition must reuse the engine")
	}

	loc, _ := synthesize(t, listDefinition("list"), synth.Location())
	d, err := r.GetOrBuild(loc)
	if err != nil {
		t.Fatal(err)
	}
	if d == a || !d.Location() {
		t.Fatal("a location-tracking engine must be registered separately")
	}
	if r.Len() != 2 {
		t.Fatalf("unexpected registry size: %v", r.Len())
	}
	if _, ok := r.Lookup("list#location"); !ok {
		t.Fatal("the location-tracking engine is missing")
	}
}

func TestRegistry_KeyConflict(t *testing.T) {
	r := NewRegistry()
	s, _ := synthesize(t, listDefinition("list"))
	if _, err := r.GetOrBuild(s); err != nil {
		t.Fatal(err)
	}

	def := listDefinition("list")
	def.Tokens = `
[a-z]+  = ID
;       = COMMA
[ \n]+  = _
`
	other, _ := synthesize(t, def)
	_, err := r.GetOrBuild(other)
	if !errors.Is(err, ErrKeyConflict) {
		t.Fatalf("a different definition under a taken name must fail; got: %v", err)
	}

	if !r.Evict("list") {
		t.Fatal("Evict must report the registered key")
	}
	if r.Evict("list") {
		t.Fatal("Evict must report a missing key")
	}
	e, err := r.GetOrBuild(other)
	if err != nil {
		t.Fatal(err)
	}
	if e.Digest() != other.Digest {
		t.Fatal("an evicted key must accept a new engine")
	}
}

func TestRegistry_FailedBuild(t *testing.T) {
	r := NewRegistry()
	def := &rule.Definition{
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
	}
	s, _ := synthesize(t, def)
	for i := 0; i < 2; i++ {
		_, err := r.GetOrBuild(s)
		var cErrs grammar.ConflictErrors
		if !errors.As(err, &cErrs) {
			t.Fatalf("conflicts must fail every build; got: %v", err)
		}
	}
	if r.Len() != 0 {
		t.Fatal("a failed build must not be registered")
	}
}

func TestRegistry_ConcurrentGetOrBuild(t *testing.T) {
	r := NewRegistry()
	s, _ := synthesize(t, listDefinition("list"))

	const n = 8
	engines := make([]*Engine, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engines[i], errs[i] = r.GetOrBuild(s)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if engines[i] != engines[0] {
			t.Fatal("concurrent requests must share one engine")
		}
	}
	if r.Len() != 1 {
		t.Fatalf("unexpected registry size: %v", r.Len())
	}
}
