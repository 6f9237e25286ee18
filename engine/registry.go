package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nihei9/rulegen/synth"
	"golang.org/x/sync/singleflight"
)

// ErrKeyConflict reports a key already held by an engine of another digest.
var ErrKeyConflict = errors.New("the key is bound to an engine built from another specification")

// Registry owns built engines by key. Concurrent requests for one key share
// a single build. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	group   singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]*Engine{},
	}
}

// Key returns the key an engine of s is registered under. An engine tracking
// locations is a distinct engine of the same definition.
func Key(s *synth.Spec) string {
	if s.Lexer.Location {
		return s.Name + "#location"
	}
	return s.Name
}

// GetOrBuild returns the engine registered for s, building it when the key
// is free. A failed build registers nothing, so a later call retries it.
func (r *Registry) GetOrBuild(s *synth.Spec, opts ...BuildOption) (*Engine, error) {
	key := Key(s)
	if e, ok := r.Lookup(key); ok {
		return checkDigest(key, e, s)
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if e, ok := r.Lookup(key); ok {
			return e, nil
		}
		e, err := Build(s, opts...)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.engines[key] = e
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return checkDigest(key, v.(*Engine), s)
}

func checkDigest(key string, e *Engine, s *synth.Spec) (*Engine, error) {
	if e.Digest() != s.Digest {
		return nil, fmt.Errorf("%v: %w", key, ErrKeyConflict)
	}
	return e, nil
}

func (r *Registry) Lookup(key string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[key]
	return e, ok
}

// Evict discards the engine of a key. Runs already holding the engine are
// not affected. It returns false when the key is not registered.
func (r *Registry) Evict(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[key]; !ok {
		return false
	}
	delete(r.engines, key)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
