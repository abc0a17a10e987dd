// Package resolver finds implementation types in loaded modules.
//
// A Query is either a contract, matched by concrete implementers, or a name
// fragment, matched by substring against export names. Non-empty results
// are memoized per (module, query) and per (path, query) for the life of
// the Resolver. When several candidates match, the first in the module's
// declared order wins.
package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/module"
	"github.com/kbukum/plugwire/observability"
)

// Query selects exports either by contract or by name fragment.
type Query struct {
	Contract reflect.Type
	Fragment string
}

// ByContract queries concrete implementers of contract.
func ByContract(contract reflect.Type) Query { return Query{Contract: contract} }

// ByName queries concrete exports whose name contains fragment.
func ByName(fragment string) Query { return Query{Fragment: fragment} }

// String returns the string representation of the query.
func (q Query) String() string {
	if q.Contract != nil {
		return q.Contract.String()
	}
	return fmt.Sprintf("name~%q", q.Fragment)
}

// Matches reports whether e satisfies the query.
func (q Query) Matches(e *module.Export) bool {
	if q.Contract != nil {
		return e.Implements(q.Contract)
	}
	return e.IsConcrete() && e.NameContains(q.Fragment)
}

type cacheKey struct {
	location string
	query    Query
}

type contractKey struct {
	location string
	fragment string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics records cache hits on m.
func WithMetrics(m *observability.WiringMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the resolver logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// Resolver answers type queries against a module catalog. It is not safe
// for concurrent use.
type Resolver struct {
	catalog *module.Catalog
	metrics *observability.WiringMetrics
	log     *logger.Logger

	byModule  map[cacheKey][]*module.Export
	byPath    map[cacheKey][]*module.Export
	contracts map[contractKey]reflect.Type
	scans     int
}

// New creates a resolver over catalog.
func New(catalog *module.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:   catalog,
		byModule:  make(map[cacheKey][]*module.Export),
		byPath:    make(map[cacheKey][]*module.Export),
		contracts: make(map[contractKey]reflect.Type),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("resolver")
	}
	return r
}

// Catalog returns the catalog modules are loaded from.
func (r *Resolver) Catalog() *module.Catalog { return r.catalog }

// Scans returns how many module type tables have been scanned.
func (r *Resolver) Scans() int { return r.scans }

// InModule returns the first export of m matching q, or nil.
func (r *Resolver) InModule(ctx context.Context, m *module.Module, q Query) *module.Export {
	key := cacheKey{location: m.Path(), query: q}
	if hit, ok := r.byModule[key]; ok {
		r.hit(ctx, "module", key)
		return hit[0]
	}

	found := r.scan(m, q)
	if len(found) == 0 {
		return nil
	}
	r.byModule[key] = found
	return found[0]
}

// AtPath returns the first export matching q among the modules at path.
// path may name a single unit or a directory searched the way
// module.Catalog.LoadAll does. Absence is reported as nil without error;
// load failures are returned.
func (r *Resolver) AtPath(ctx context.Context, path string, q Query) (*module.Export, error) {
	found, err := r.CandidatesAtPath(ctx, path, q)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// CandidatesAtPath returns every export matching q among the modules at
// path, in module then declaration order.
func (r *Resolver) CandidatesAtPath(ctx context.Context, path string, q Query) ([]*module.Export, error) {
	key := cacheKey{location: filepath.Clean(path), query: q}
	if hit, ok := r.byPath[key]; ok {
		r.hit(ctx, "path", key)
		return hit, nil
	}

	modules, err := r.catalog.LoadPath(ctx, path)
	if err != nil {
		return nil, err
	}

	var found []*module.Export
	for _, m := range modules {
		found = append(found, r.scan(m, q)...)
	}
	if len(found) > 0 {
		r.byPath[key] = found
	}
	r.log.WithContext(ctx).Debug("resolved types at path", logger.Fields(
		logger.FieldPath, key.location,
		"query", q.String(),
		"candidates", len(found),
	))
	return found, nil
}

// Contract returns the first contract exported under path whose name
// contains fragment, or nil.
func (r *Resolver) Contract(ctx context.Context, path, fragment string) (reflect.Type, error) {
	key := contractKey{location: filepath.Clean(path), fragment: fragment}
	if t, ok := r.contracts[key]; ok {
		r.hit(ctx, "contract", cacheKey{location: key.location, query: ByName(fragment)})
		return t, nil
	}

	modules, err := r.catalog.LoadPath(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		if t := r.contractIn(m, fragment); t != nil {
			r.contracts[key] = t
			return t, nil
		}
	}
	return nil, nil
}

// ContractInModule returns the first contract exported by m whose name
// contains fragment, or nil.
func (r *Resolver) ContractInModule(m *module.Module, fragment string) reflect.Type {
	key := contractKey{location: "module:" + m.Path(), fragment: fragment}
	if t, ok := r.contracts[key]; ok {
		return t
	}
	t := r.contractIn(m, fragment)
	if t != nil {
		r.contracts[key] = t
	}
	return t
}

func (r *Resolver) contractIn(m *module.Module, fragment string) reflect.Type {
	r.scans++
	for _, e := range m.Exports() {
		if e.Kind == module.KindContract && e.NameContains(fragment) {
			return e.Type
		}
	}
	return nil
}

func (r *Resolver) scan(m *module.Module, q Query) []*module.Export {
	r.scans++
	var found []*module.Export
	for _, e := range m.Exports() {
		if q.Matches(e) {
			found = append(found, e)
		}
	}
	return found
}

func (r *Resolver) hit(ctx context.Context, cache string, key cacheKey) {
	r.metrics.RecordCacheHit(ctx, cache)
	r.log.WithContext(ctx).Debug("type cache hit", logger.Fields(
		"cache", cache,
		logger.FieldPath, key.location,
		"query", key.query.String(),
	))
}
