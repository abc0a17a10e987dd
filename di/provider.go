package di

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/plugwire/errors"
	"github.com/kbukum/plugwire/logger"
)

type serviceKey struct {
	contract reflect.Type
	key      any
}

// entry is the runtime state of one descriptor. decorators is the chain
// length composed into build when the table was frozen.
type entry struct {
	desc        *Descriptor
	build       Factory
	decorators  int
	mutex       sync.Mutex
	instance    any
	initialized bool
}

// scope caches scoped instances. The root provider is its own scope.
type scope struct {
	mutex     sync.Mutex
	instances map[*entry]any
	order     []*entry
}

// Provider resolves services from a frozen registration table. It is safe
// for concurrent use.
type Provider struct {
	table   map[serviceKey][]*entry
	entries []*entry
	scope   *scope
	root    bool
	log     *logger.Logger

	// chain holds the entries being built by the resolution that handed
	// out this provider.
	chain []*entry
}

func newProvider(descriptors []*Descriptor) *Provider {
	p := &Provider{
		table: make(map[serviceKey][]*entry),
		scope: &scope{instances: make(map[*entry]any)},
		root:  true,
		log:   logger.Get("di"),
	}
	for _, d := range descriptors {
		e := &entry{desc: d, build: d.compose(), decorators: len(d.Decorations)}
		k := serviceKey{contract: d.Contract, key: d.Key}
		p.table[k] = append(p.table[k], e)
		p.entries = append(p.entries, e)
	}
	return p
}

// CreateScope returns a provider sharing singletons with p but holding its
// own scoped instances.
func (p *Provider) CreateScope() *Provider {
	return &Provider{
		table:   p.table,
		entries: p.entries,
		scope:   &scope{instances: make(map[*entry]any)},
		log:     p.log,
	}
}

// Resolve returns the instance for the last registration of contract under
// key. A nil key selects the unkeyed registration.
func (p *Provider) Resolve(contract reflect.Type, key any) (any, error) {
	if !hashable(key) {
		return nil, unhashableKey(key)
	}
	entries := p.table[serviceKey{contract: contract, key: key}]
	if len(entries) == 0 {
		return nil, errors.NotRegistered(typeName(contract), key)
	}
	return p.resolveEntry(entries[len(entries)-1], key)
}

// ResolveAll returns an instance for every registration of contract under
// key, in registration order.
func (p *Provider) ResolveAll(contract reflect.Type, key any) ([]any, error) {
	if !hashable(key) {
		return nil, unhashableKey(key)
	}
	entries := p.table[serviceKey{contract: contract, key: key}]
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		inst, err := p.resolveEntry(e, key)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// TryResolve is like Resolve but reports absence or failure as false.
func (p *Provider) TryResolve(contract reflect.Type, key any) (any, bool) {
	inst, err := p.Resolve(contract, key)
	if err != nil {
		return nil, false
	}
	return inst, true
}

// IsRegistered reports whether contract has a registration under key.
func (p *Provider) IsRegistered(contract reflect.Type, key any) bool {
	return hashable(key) && len(p.table[serviceKey{contract: contract, key: key}]) > 0
}

func hashable(key any) bool {
	return key == nil || reflect.TypeOf(key).Comparable()
}

func unhashableKey(key any) error {
	return errors.InvalidInput("key", fmt.Sprintf("key of type %T is not comparable", key))
}

func (p *Provider) resolveEntry(e *entry, key any) (any, error) {
	if slices.Contains(p.chain, e) {
		return nil, errors.Activation(typeName(e.desc.Contract), "circular dependency")
	}
	switch e.desc.Lifetime {
	case Singleton:
		return p.resolveSingleton(e, key)
	case Scoped:
		return p.resolveScoped(e, key)
	default:
		return e.build(p.building(e), key)
	}
}

// building returns a view of p that remembers e is under construction, so
// a build that resolves e again fails instead of recursing or deadlocking.
func (p *Provider) building(e *entry) *Provider {
	cp := *p
	cp.chain = append(slices.Clone(p.chain), e)
	return &cp
}

func (p *Provider) resolveSingleton(e *entry, key any) (any, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.initialized {
		return e.instance, nil
	}

	instance, err := e.build(p.building(e), key)
	if err != nil {
		return nil, err
	}
	e.instance = instance
	e.initialized = true

	p.log.Debug("singleton initialized", logger.Fields(
		logger.FieldContract, typeName(e.desc.Contract),
		logger.FieldKey, e.desc.Key,
		logger.FieldStrategy, string(e.desc.Strategy()),
	))
	return instance, nil
}

func (p *Provider) resolveScoped(e *entry, key any) (any, error) {
	s := p.scope
	s.mutex.Lock()
	if inst, ok := s.instances[e]; ok {
		s.mutex.Unlock()
		return inst, nil
	}
	s.mutex.Unlock()

	instance, err := e.build(p.building(e), key)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if inst, ok := s.instances[e]; ok {
		return inst, nil
	}
	s.instances[e] = instance
	s.order = append(s.order, e)
	return instance, nil
}

// RegistrationInfo describes a registration for introspection.
type RegistrationInfo struct {
	ID             uuid.UUID
	Contract       string
	Key            any
	Lifetime       Lifetime
	Strategy       Strategy
	Implementation string
	Decorators     int
	Initialized    bool
}

// Registrations returns info about every registration in table order.
func (p *Provider) Registrations() []RegistrationInfo {
	result := make([]RegistrationInfo, 0, len(p.entries))
	for _, e := range p.entries {
		e.mutex.Lock()
		initialized := e.initialized
		e.mutex.Unlock()

		result = append(result, RegistrationInfo{
			ID:             e.desc.ID,
			Contract:       typeName(e.desc.Contract),
			Key:            e.desc.Key,
			Lifetime:       e.desc.Lifetime,
			Strategy:       e.desc.Strategy(),
			Implementation: e.desc.ImplementationName(),
			Decorators:     e.decorators,
			Initialized:    initialized,
		})
	}
	return result
}

// Close closes scoped instances of this scope and, on the root provider,
// every initialized singleton that has a Close method. Instances are closed
// in reverse registration order.
func (p *Provider) Close() error {
	var errs []error

	s := p.scope
	s.mutex.Lock()
	for i := len(s.order) - 1; i >= 0; i-- {
		errs = append(errs, closeInstance(s.instances[s.order[i]]))
	}
	s.instances = make(map[*entry]any)
	s.order = nil
	s.mutex.Unlock()

	if p.root {
		for i := len(p.entries) - 1; i >= 0; i-- {
			e := p.entries[i]
			e.mutex.Lock()
			if e.initialized && e.desc.Lifetime == Singleton && e.owned() {
				errs = append(errs, closeInstance(e.instance))
			}
			e.mutex.Unlock()
		}
	}

	return stderrors.Join(errs...)
}

// owned reports whether the provider created the instance. Values handed
// in through AddInstance belong to the caller.
func (e *entry) owned() bool {
	return e.desc.Strategy() != StrategyInstance || e.decorators > 0
}

func closeInstance(instance any) error {
	if closer, ok := instance.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
