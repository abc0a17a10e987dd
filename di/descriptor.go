package di

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/kbukum/plugwire/errors"
)

// Factory builds an instance from the provider. key is the key the
// registration was made under, or nil.
type Factory func(p *Provider, key any) (any, error)

// Strategy names how a descriptor constructs its base instance.
type Strategy string

const (
	StrategyImplementation Strategy = "implementation"
	StrategyFactory        Strategy = "factory"
	StrategyInstance       Strategy = "instance"
)

// Decoration wraps the instance produced so far. The decorator constructor
// receives the inner instance followed by Args.
type Decoration struct {
	Decorator *Activator
	Args      []any
}

// Descriptor is a single entry of the registration table.
//
// Exactly one of Implementation, Factory and Instance is set. Decorations
// are applied in order on top of the base instance when the provider is
// built.
type Descriptor struct {
	ID             uuid.UUID
	Contract       reflect.Type
	Key            any
	Lifetime       Lifetime
	Implementation *Activator
	Factory        Factory
	Instance       any
	Decorations    []Decoration
}

// IsKeyed reports whether the descriptor was registered under a key.
func (d *Descriptor) IsKeyed() bool { return d.Key != nil }

// Strategy returns the base construction strategy.
func (d *Descriptor) Strategy() Strategy {
	switch {
	case d.Factory != nil:
		return StrategyFactory
	case d.Implementation != nil:
		return StrategyImplementation
	default:
		return StrategyInstance
	}
}

// ImplementationName returns the produced type name when known.
func (d *Descriptor) ImplementationName() string {
	switch {
	case d.Implementation != nil:
		return d.Implementation.Name()
	case d.Instance != nil:
		return reflect.TypeOf(d.Instance).String()
	default:
		return ""
	}
}

// clone copies d under a new ID and key. The decoration chain is copied so
// later decorations of either descriptor do not leak into the other.
func (d *Descriptor) clone(key any) *Descriptor {
	cp := *d
	cp.ID = uuid.New()
	cp.Key = key
	cp.Decorations = append([]Decoration(nil), d.Decorations...)
	return &cp
}

// base returns the construction means of the undecorated registration.
// Implementation registrations reuse an instance registered under the
// implementation type itself before activating a new one.
func (d *Descriptor) base() Factory {
	switch d.Strategy() {
	case StrategyFactory:
		return d.Factory
	case StrategyImplementation:
		act := d.Implementation
		if len(d.Decorations) == 0 {
			return func(p *Provider, _ any) (any, error) {
				return act.Activate(p)
			}
		}
		return func(p *Provider, _ any) (any, error) {
			if act.Type() != d.Contract {
				if inst, ok := p.TryResolve(act.Type(), nil); ok {
					return inst, nil
				}
			}
			return act.Activate(p)
		}
	default:
		inst := d.Instance
		return func(*Provider, any) (any, error) {
			return inst, nil
		}
	}
}

// compose assembles the final construction closure: the base instance fed
// through every decoration in order.
func (d *Descriptor) compose() Factory {
	build := d.base()
	for _, dec := range d.Decorations {
		inner := build
		build = func(p *Provider, key any) (any, error) {
			instance, err := inner(p, key)
			if err != nil {
				return nil, err
			}
			if instance == nil {
				return nil, errors.Activation(dec.Decorator.Name(), "decorated instance is nil")
			}
			args := make([]any, 0, len(dec.Args)+1)
			args = append(args, instance)
			args = append(args, dec.Args...)
			return dec.Decorator.Activate(p, args...)
		}
	}
	return build
}
