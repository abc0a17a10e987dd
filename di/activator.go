package di

import (
	"fmt"
	"reflect"

	"github.com/kbukum/plugwire/errors"
)

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	providerType = reflect.TypeOf((*Provider)(nil))
)

// Activator invokes a constructor function, resolving its parameters from a
// provider. Constructors return either (T) or (T, error).
type Activator struct {
	fn     reflect.Value
	out    reflect.Type
	params []reflect.Type
	name   string
}

// NewActivator validates constructor and wraps it in an Activator.
func NewActivator(constructor any) (*Activator, error) {
	if act, ok := constructor.(*Activator); ok {
		return act, nil
	}
	fn := reflect.ValueOf(constructor)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, errors.InvalidInput("constructor", fmt.Sprintf("constructor must be a function, got %T", constructor))
	}

	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, errors.InvalidInput("constructor", fmt.Sprintf("variadic constructor %s is not supported", ft))
	}

	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.InvalidInput("constructor", fmt.Sprintf("second result of %s must be error", ft))
		}
	default:
		return nil, errors.InvalidInput("constructor", fmt.Sprintf("constructor %s must return (T) or (T, error)", ft))
	}

	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}

	return &Activator{
		fn:     fn,
		out:    ft.Out(0),
		params: params,
		name:   ft.Out(0).String(),
	}, nil
}

// MustActivator is like NewActivator but panics on an invalid constructor.
func MustActivator(constructor any) *Activator {
	act, err := NewActivator(constructor)
	if err != nil {
		panic(err)
	}
	return act
}

// Type returns the type the constructor produces.
func (a *Activator) Type() reflect.Type { return a.out }

// Name returns a readable name for the produced type.
func (a *Activator) Name() string { return a.name }

// Params returns the constructor parameter types.
func (a *Activator) Params() []reflect.Type { return a.params }

// Activate calls the constructor. Each parameter takes the first unused
// value in args assignable to it; remaining parameters are resolved from p
// by type without a key.
func (a *Activator) Activate(p *Provider, args ...any) (any, error) {
	in := make([]reflect.Value, len(a.params))
	used := make([]bool, len(args))

	for i, pt := range a.params {
		if v, ok := takeArg(pt, args, used); ok {
			in[i] = v
			continue
		}
		if pt == providerType {
			in[i] = reflect.ValueOf(p)
			continue
		}
		if p == nil {
			return nil, errors.Activation(a.name, fmt.Sprintf("parameter %d (%s) has no value and no provider", i, pt)).
				WithDetail("param", i)
		}
		dep, err := p.Resolve(pt, nil)
		if err != nil {
			return nil, errors.Activation(a.name, fmt.Sprintf("parameter %d (%s) is not resolvable", i, pt)).
				WithDetail("param", i).
				WithCause(err)
		}
		v, err := valueFor(pt, dep)
		if err != nil {
			return nil, errors.Activation(a.name, err.Error()).WithDetail("param", i)
		}
		in[i] = v
	}

	out := a.fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func takeArg(pt reflect.Type, args []any, used []bool) (reflect.Value, bool) {
	for j, arg := range args {
		if used[j] || arg == nil {
			continue
		}
		if reflect.TypeOf(arg).AssignableTo(pt) {
			used[j] = true
			return reflect.ValueOf(arg), true
		}
	}
	return reflect.Value{}, false
}

func valueFor(pt reflect.Type, dep any) (reflect.Value, error) {
	if dep == nil {
		return reflect.Zero(pt), nil
	}
	v := reflect.ValueOf(dep)
	if !v.Type().AssignableTo(pt) {
		return reflect.Value{}, fmt.Errorf("resolved %s is not assignable to %s", v.Type(), pt)
	}
	return v, nil
}
