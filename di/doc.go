// Package di is the host container plugwire wires services into.
//
// Registrations are collected in a Collection during the wiring phase and
// frozen into a Provider once wiring completes. A registration is identified
// by its contract (an interface type) and an optional key; several
// registrations may exist for the same pair, in which case the last one wins
// on Resolve and ResolveAll returns them all in registration order.
//
// # Registration
//
//	c := di.NewCollection()
//	c.AddSingleton(di.TypeOf[Greeter](), NewEnglishGreeter)
//	c.AddKeyedTransient(di.TypeOf[Greeter](), "v2", NewV2Greeter)
//
// # Resolution
//
//	p := c.Build()
//	g := di.MustResolve[Greeter](p)
//
// Constructors are plain functions. Their parameters are resolved from the
// provider by type; a *di.Provider parameter receives the provider itself.
package di
