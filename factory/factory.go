// Package factory registers services whose construction is delegated to an
// implementation factory resolved from the container at first use.
//
// The factory type is registered as a transient service under its own
// type. The target contract is registered with a closure that resolves the
// factory and asks it to produce the instance, passing the registration
// key through. A factory that is missing or does not implement
// ImplementationFactory fails resolution with FACTORY_NOT_REGISTERED.
package factory

import (
	"fmt"
	"reflect"

	"github.com/kbukum/plugwire/di"
	"github.com/kbukum/plugwire/errors"
)

// ImplementationFactory produces instances of a contract on demand. key is
// nil for unkeyed requests.
type ImplementationFactory interface {
	Produce(p *di.Provider, contract reflect.Type, key any) (any, error)
}

// Capability is the reflected ImplementationFactory interface.
var Capability = reflect.TypeOf((*ImplementationFactory)(nil)).Elem()

// AddTransient registers contract so that each resolution asks factory for
// a new instance.
func AddTransient(c *di.Collection, contract reflect.Type, factory any) (*di.Descriptor, error) {
	return add(c, contract, di.Transient, nil, factory, nil)
}

// AddSingleton registers contract so that the first resolution asks
// factory for the instance and later ones reuse it.
func AddSingleton(c *di.Collection, contract reflect.Type, factory any) (*di.Descriptor, error) {
	return add(c, contract, di.Singleton, nil, factory, nil)
}

// AddKeyedTransient is AddTransient under key. The factory receives key.
func AddKeyedTransient(c *di.Collection, contract reflect.Type, key any, factory any) (*di.Descriptor, error) {
	return add(c, contract, di.Transient, key, factory, nil)
}

// AddKeyedSingleton is AddSingleton under key. The factory receives key.
func AddKeyedSingleton(c *di.Collection, contract reflect.Type, key any, factory any) (*di.Descriptor, error) {
	return add(c, contract, di.Singleton, key, factory, nil)
}

// AddSingletonWithKey registers contract unkeyed but always passes key to
// the factory.
func AddSingletonWithKey(c *di.Collection, contract reflect.Type, factory any, key any) (*di.Descriptor, error) {
	return add(c, contract, di.Singleton, nil, factory, fixed(key))
}

// AddTransientWithKey registers contract unkeyed but always passes key to
// the factory.
func AddTransientWithKey(c *di.Collection, contract reflect.Type, factory any, key any) (*di.Descriptor, error) {
	return add(c, contract, di.Transient, nil, factory, fixed(key))
}

type fixedKey struct{ key any }

func fixed(key any) *fixedKey { return &fixedKey{key: key} }

func add(c *di.Collection, contract reflect.Type, lifetime di.Lifetime, key any, factory any, pass *fixedKey) (*di.Descriptor, error) {
	act, err := di.NewActivator(factory)
	if err != nil {
		return nil, err
	}
	factoryType := act.Type()

	if !c.Contains(factoryType, nil) {
		if _, err := c.AddType(factoryType, di.Transient, nil, act); err != nil {
			return nil, err
		}
	}

	return c.AddFactory(contract, lifetime, key, func(p *di.Provider, regKey any) (any, error) {
		f, err := Resolve(p, factoryType)
		if err != nil {
			return nil, err
		}
		if pass != nil {
			regKey = pass.key
		}
		return f.Produce(p, contract, regKey)
	})
}

// Resolve returns the factory registered under factoryType.
func Resolve(p *di.Provider, factoryType reflect.Type) (ImplementationFactory, error) {
	name := factoryType.String()
	inst, err := p.Resolve(factoryType, nil)
	if err != nil || inst == nil {
		appErr := errors.FactoryNotRegistered(name, "not registered")
		if err != nil {
			appErr = appErr.WithCause(err)
		}
		return nil, appErr
	}
	f, ok := inst.(ImplementationFactory)
	if !ok {
		return nil, errors.FactoryNotRegistered(name, fmt.Sprintf("is not an implementation factory (got %T)", inst))
	}
	return f, nil
}
