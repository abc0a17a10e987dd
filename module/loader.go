package module

import (
	"fmt"
	"path/filepath"
	"plugin"
	"sort"
	"sync"
)

// SymbolName is the symbol a plugin unit exports its manifest under.
const SymbolName = "PlugwireManifest"

// Loader opens a single unit and returns its manifest.
type Loader interface {
	Open(path string) (*Manifest, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (*Manifest, error)

// Open calls f(path).
func (f LoaderFunc) Open(path string) (*Manifest, error) { return f(path) }

// PluginLoader opens units built with -buildmode=plugin.
type PluginLoader struct{}

// Open loads the plugin at path and reads its PlugwireManifest symbol. The
// symbol may be a *Manifest variable or a func() *Manifest.
func (PluginLoader) Open(path string) (*Manifest, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(SymbolName)
	if err != nil {
		return nil, err
	}

	switch m := sym.(type) {
	case **Manifest:
		return *m, nil
	case *Manifest:
		return m, nil
	case func() *Manifest:
		return m(), nil
	case *func() *Manifest:
		return (*m)(), nil
	default:
		return nil, fmt.Errorf("symbol %s has unsupported type %T", SymbolName, sym)
	}
}

// Registry holds manifests compiled into the host, keyed by unit path.
// A Registry is a Loader.
type Registry struct {
	mu        sync.RWMutex
	manifests map[string]*Manifest
}

// NewRegistry creates an empty manifest registry.
func NewRegistry() *Registry {
	return &Registry{manifests: make(map[string]*Manifest)}
}

// Register makes m loadable under path. It panics if path is registered
// twice or m is nil.
func (r *Registry) Register(path string, m *Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m == nil {
		panic("module: Register manifest is nil")
	}
	path = filepath.Clean(path)
	if _, dup := r.manifests[path]; dup {
		panic("module: Register called twice for " + path)
	}
	r.manifests[path] = m
}

// Paths returns the sorted paths of all registered manifests.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.manifests))
	for p := range r.manifests {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Open returns the manifest registered under path.
func (r *Registry) Open(path string) (*Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("no manifest registered for %s", path)
	}
	return m, nil
}

var static = NewRegistry()

// Register makes a compiled-in manifest available to StaticLoader under
// path, typically from an init function.
func Register(path string, m *Manifest) { static.Register(path, m) }

// StaticLoader returns the loader serving manifests added with Register.
func StaticLoader() Loader { return static }
