package di

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/kbukum/plugwire/errors"
)

// Collection is the registration table built up during wiring.
// It is not safe for concurrent use.
type Collection struct {
	descriptors []*Descriptor
}

// NewCollection creates an empty registration table.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends d to the table after validating it. A zero ID is replaced
// with a fresh one.
func (c *Collection) Add(d *Descriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	c.descriptors = append(c.descriptors, d)
	return nil
}

// AddType registers an implementation constructed by act.
func (c *Collection) AddType(contract reflect.Type, lifetime Lifetime, key any, act *Activator) (*Descriptor, error) {
	d := &Descriptor{Contract: contract, Key: key, Lifetime: lifetime, Implementation: act}
	if err := c.Add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddFactory registers a construction closure.
func (c *Collection) AddFactory(contract reflect.Type, lifetime Lifetime, key any, f Factory) (*Descriptor, error) {
	d := &Descriptor{Contract: contract, Key: key, Lifetime: lifetime, Factory: f}
	if err := c.Add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddInstance registers a pre-built singleton value.
func (c *Collection) AddInstance(contract reflect.Type, key any, instance any) (*Descriptor, error) {
	d := &Descriptor{Contract: contract, Key: key, Lifetime: Singleton, Instance: instance}
	if err := c.Add(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Collection) addConstructor(contract reflect.Type, lifetime Lifetime, key any, constructor any) error {
	act, err := NewActivator(constructor)
	if err != nil {
		return err
	}
	_, err = c.AddType(contract, lifetime, key, act)
	return err
}

// AddSingleton registers constructor as the singleton implementation of contract.
func (c *Collection) AddSingleton(contract reflect.Type, constructor any) error {
	return c.addConstructor(contract, Singleton, nil, constructor)
}

// AddKeyedSingleton registers constructor as the singleton implementation of
// contract under key.
func (c *Collection) AddKeyedSingleton(contract reflect.Type, key any, constructor any) error {
	return c.addConstructor(contract, Singleton, key, constructor)
}

// AddScoped registers constructor as the scoped implementation of contract.
func (c *Collection) AddScoped(contract reflect.Type, constructor any) error {
	return c.addConstructor(contract, Scoped, nil, constructor)
}

// AddKeyedScoped registers constructor as the scoped implementation of
// contract under key.
func (c *Collection) AddKeyedScoped(contract reflect.Type, key any, constructor any) error {
	return c.addConstructor(contract, Scoped, key, constructor)
}

// AddTransient registers constructor as the transient implementation of contract.
func (c *Collection) AddTransient(contract reflect.Type, constructor any) error {
	return c.addConstructor(contract, Transient, nil, constructor)
}

// AddKeyedTransient registers constructor as the transient implementation of
// contract under key.
func (c *Collection) AddKeyedTransient(contract reflect.Type, key any, constructor any) error {
	return c.addConstructor(contract, Transient, key, constructor)
}

// Descriptors returns the registrations for contract in registration order,
// keyed and unkeyed alike.
func (c *Collection) Descriptors(contract reflect.Type) []*Descriptor {
	var out []*Descriptor
	for _, d := range c.descriptors {
		if d.Contract == contract {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the registration Resolve would use for (contract, key).
func (c *Collection) Lookup(contract reflect.Type, key any) (*Descriptor, bool) {
	for i := len(c.descriptors) - 1; i >= 0; i-- {
		d := c.descriptors[i]
		if d.Contract == contract && d.Key == key {
			return d, true
		}
	}
	return nil, false
}

// Contains reports whether contract is registered under key.
func (c *Collection) Contains(contract reflect.Type, key any) bool {
	_, ok := c.Lookup(contract, key)
	return ok
}

// Count returns the number of registrations for contract.
func (c *Collection) Count(contract reflect.Type) int {
	return len(c.Descriptors(contract))
}

// Len returns the total number of registrations.
func (c *Collection) Len() int { return len(c.descriptors) }

// All returns every registration in order.
func (c *Collection) All() []*Descriptor {
	return append([]*Descriptor(nil), c.descriptors...)
}

// Decorate appends dec to the chain of the registration with the given ID.
// Contract, key, lifetime and position in the table are unchanged.
func (c *Collection) Decorate(id uuid.UUID, dec Decoration) error {
	d := c.find(id)
	if d == nil {
		return errors.InvalidInput("id", fmt.Sprintf("no registration with id %s", id))
	}
	if err := checkDecorator(d.Contract, dec); err != nil {
		return err
	}
	d.Decorations = append(d.Decorations, dec)
	return nil
}

// AddDecorated appends a copy of the registration with the given ID under
// key, with dec added to the copy's chain. The original is left untouched.
func (c *Collection) AddDecorated(id uuid.UUID, key any, dec Decoration) (*Descriptor, error) {
	d := c.find(id)
	if d == nil {
		return nil, errors.InvalidInput("id", fmt.Sprintf("no registration with id %s", id))
	}
	if err := checkDecorator(d.Contract, dec); err != nil {
		return nil, err
	}
	cp := d.clone(key)
	cp.Decorations = append(cp.Decorations, dec)
	if err := c.Add(cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// Build freezes the table into a Provider. Later changes to the collection
// do not affect the returned provider.
func (c *Collection) Build() *Provider {
	return newProvider(c.descriptors)
}

func (c *Collection) find(id uuid.UUID) *Descriptor {
	for _, d := range c.descriptors {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func validateDescriptor(d *Descriptor) error {
	if d == nil || d.Contract == nil {
		return errors.InvalidInput("contract", "contract type is required")
	}
	if d.Key != nil && !reflect.TypeOf(d.Key).Comparable() {
		return errors.InvalidInput("key", fmt.Sprintf("key of type %T is not comparable", d.Key))
	}

	set := 0
	for _, ok := range []bool{d.Implementation != nil, d.Factory != nil, d.Instance != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.InvalidInput("descriptor", fmt.Sprintf("registration for %s needs exactly one of implementation, factory or instance", d.Contract))
	}

	if d.Implementation != nil && !d.Implementation.Type().AssignableTo(d.Contract) {
		return errors.InvalidInput("implementation", fmt.Sprintf("%s does not implement %s", d.Implementation.Type(), d.Contract))
	}
	if d.Instance != nil && !reflect.TypeOf(d.Instance).AssignableTo(d.Contract) {
		return errors.InvalidInput("instance", fmt.Sprintf("%T does not implement %s", d.Instance, d.Contract))
	}
	return nil
}

func checkDecorator(contract reflect.Type, dec Decoration) error {
	if dec.Decorator == nil {
		return errors.InvalidInput("decorator", "decorator is required")
	}
	if !dec.Decorator.Type().AssignableTo(contract) {
		return errors.InvalidInput("decorator", fmt.Sprintf("%s does not implement %s", dec.Decorator.Type(), contract))
	}
	return nil
}
