package di

import (
	"fmt"
	"reflect"
)

// TypeOf returns the reflect.Type of T. For interfaces this is the
// interface type itself, which is what registrations are keyed by.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Resolve resolves the unkeyed registration of T.
//
// Example:
//
//	greeter, err := di.Resolve[Greeter](p)
//	if err != nil {
//	    return fmt.Errorf("failed to get greeter: %w", err)
//	}
func Resolve[T any](p *Provider) (T, error) {
	return ResolveKeyed[T](p, nil)
}

// ResolveKeyed resolves the registration of T under key.
func ResolveKeyed[T any](p *Provider, key any) (T, error) {
	var zero T
	instance, err := p.Resolve(TypeOf[T](), key)
	if err != nil {
		return zero, err
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: component %s is %T, expected %s", TypeOf[T](), instance, TypeOf[T]())
	}
	return result, nil
}

// MustResolve resolves T, panicking on error.
func MustResolve[T any](p *Provider) T {
	result, err := Resolve[T](p)
	if err != nil {
		panic(fmt.Sprintf("di: failed to resolve %s: %v", TypeOf[T](), err))
	}
	return result
}

// MustResolveKeyed resolves T under key, panicking on error.
func MustResolveKeyed[T any](p *Provider, key any) T {
	result, err := ResolveKeyed[T](p, key)
	if err != nil {
		panic(fmt.Sprintf("di: failed to resolve %s[%v]: %v", TypeOf[T](), key, err))
	}
	return result
}

// TryResolve resolves T, returning false if it is absent or fails.
// Use this when a dependency is optional.
//
// Example:
//
//	if metrics, ok := di.TryResolve[MetricsClient](p); ok {
//	    metrics.RecordEvent(...)
//	}
func TryResolve[T any](p *Provider) (T, bool) {
	result, err := Resolve[T](p)
	if err != nil {
		var zero T
		return zero, false
	}
	return result, true
}

// ResolveAll resolves every unkeyed registration of T.
func ResolveAll[T any](p *Provider) ([]T, error) {
	instances, err := p.ResolveAll(TypeOf[T](), nil)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(instances))
	for _, inst := range instances {
		v, ok := inst.(T)
		if !ok {
			return nil, fmt.Errorf("di: component %s is %T, expected %s", TypeOf[T](), inst, TypeOf[T]())
		}
		out = append(out, v)
	}
	return out, nil
}
