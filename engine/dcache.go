package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	spec "github.com/nihei9/rulegen/spec/grammar"
	"github.com/vmihailenco/msgpack/v5"
)

// Increment when the layout of diskPayload or of the compiled grammar
// changes.
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps compiled grammars across processes, one file per name and
// digest. It is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type diskPayload struct {
	Schema  uint16
	Name    string
	Digest  string
	Grammar *spec.CompiledGrammar
	Report  *spec.Report
}

// OpenDiskCache opens the cache rooted at dir, creating the directory when
// it does not exist.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("a cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenUserDiskCache opens the cache under the user cache directory.
func OpenUserDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCache(filepath.Join(base, app))
}

func (c *DiskCache) Dir() string {
	return c.dir
}

func (c *DiskCache) pathFor(name, digest string) string {
	return filepath.Join(c.dir, name+"-"+digest+".mp")
}

// Put writes a compiled grammar and its report. The file is replaced
// atomically so a reader never observes a partial entry.
func (c *DiskCache) Put(cg *spec.CompiledGrammar, report *spec.Report) (retErr error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(cg.Name, cg.Digest)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	enc := msgpack.NewEncoder(f)
	enc.SetCustomStructTag("json")
	err = enc.Encode(&diskPayload{
		Schema:  diskCacheSchemaVersion,
		Name:    cg.Name,
		Digest:  cg.Digest,
		Grammar: cg,
		Report:  report,
	})
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the entry of a name and digest. The third result is false when
// no usable entry exists; an entry of another schema version counts as
// missing.
func (c *DiskCache) Get(name, digest string) (*spec.CompiledGrammar, *spec.Report, bool, error) {
	if c == nil {
		return nil, nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(name, digest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	dec.SetCustomStructTag("json")
	var payload diskPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, false, fmt.Errorf("%v: %w", f.Name(), err)
	}
	if payload.Schema != diskCacheSchemaVersion {
		return nil, nil, false, nil
	}
	if payload.Name != name || payload.Digest != digest || payload.Grammar == nil {
		return nil, nil, false, fmt.Errorf("%v: the entry belongs to another grammar", f.Name())
	}
	return payload.Grammar, payload.Report, true, nil
}

// Remove deletes every entry of a grammar name.
func (c *DiskCache) Remove(name string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(c.dir, name+"-*.mp"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		// A longer name sharing the prefix leaves a hyphen before the digest.
		digest := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), name+"-"), ".mp")
		if strings.Contains(digest, "-") {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// DropAll deletes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(c.dir, "*.mp"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
