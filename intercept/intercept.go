// Package intercept wraps registered services in decorators.
//
// A decorator is a constructor whose parameters include the contract it
// decorates:
//
//	func NewLoggingGreeter(inner Greeter, log *logger.Logger) *LoggingGreeter
//
// Intercept appends the decorator to the chain of every registration of
// the contract currently in the collection. Each call adds one layer, so
// intercepting with A and then B resolves to B(A(original)). The chain is
// assembled once when the collection is built.
package intercept

import (
	"reflect"

	"github.com/kbukum/plugwire/di"
	"github.com/kbukum/plugwire/logger"
)

// Intercept decorates every registration of contract in place. Contract,
// key, lifetime and table position of each registration are unchanged.
// Intercepting a contract with no registrations does nothing.
func Intercept(c *di.Collection, contract reflect.Type, decorator any) error {
	return InterceptWith(c, contract, decorator)
}

// InterceptWith is Intercept with extra fixed constructor arguments. The
// decorator receives the inner instance first, then args, each matched to
// the first parameter it is assignable to. Parameters left over are
// resolved from the provider.
func InterceptWith(c *di.Collection, contract reflect.Type, decorator any, args ...any) error {
	dec, err := decoration(decorator, args)
	if err != nil {
		return err
	}
	targets := c.Descriptors(contract)
	for _, d := range targets {
		if err := c.Decorate(d.ID, dec); err != nil {
			return err
		}
	}
	logDecoration("intercepted", contract, dec, len(targets), nil)
	return nil
}

// AddWrapping adds, for every registration of contract, a decorated copy
// under key. The originals stay resolvable as they were. Each copy starts
// from the chain its original has now.
func AddWrapping(c *di.Collection, contract reflect.Type, decorator any, key any, args ...any) error {
	dec, err := decoration(decorator, args)
	if err != nil {
		return err
	}
	targets := c.Descriptors(contract)
	for _, d := range targets {
		if _, err := c.AddDecorated(d.ID, key, dec); err != nil {
			return err
		}
	}
	logDecoration("wrapping added", contract, dec, len(targets), key)
	return nil
}

// For intercepts the registrations of T with decorator.
func For[T any](c *di.Collection, decorator any) error {
	return Intercept(c, di.TypeOf[T](), decorator)
}

// ForWith intercepts the registrations of T with decorator and extra args.
func ForWith[T any](c *di.Collection, decorator any, args ...any) error {
	return InterceptWith(c, di.TypeOf[T](), decorator, args...)
}

// WrapFor adds decorated copies of the registrations of T under key.
func WrapFor[T any](c *di.Collection, decorator any, key any, args ...any) error {
	return AddWrapping(c, di.TypeOf[T](), decorator, key, args...)
}

func decoration(decorator any, args []any) (di.Decoration, error) {
	act, err := di.NewActivator(decorator)
	if err != nil {
		return di.Decoration{}, err
	}
	return di.Decoration{Decorator: act, Args: append([]any(nil), args...)}, nil
}

func logDecoration(msg string, contract reflect.Type, dec di.Decoration, n int, key any) {
	logger.Get("intercept").Debug(msg, logger.Fields(
		logger.FieldContract, contract.String(),
		logger.FieldType, dec.Decorator.Name(),
		logger.FieldKey, key,
		"registrations", n,
		"args", len(dec.Args),
	))
}
