// Package registrar decides how each configured service is wired and emits
// the registration into a di.Collection.
//
// A service is wired by one of three strategies, chosen from its
// ServiceSettings by ParsePlan:
//
//   - factory: an implementation factory found at the provider path builds
//     the instance on first resolution.
//   - value: a JSON payload is decoded into the implementation type found
//     at the module path and registered as a singleton instance.
//   - type: the implementation type found at the module path is registered
//     as a container-built singleton.
//
// Wiring is best effort. A contract, implementation, factory or value that
// cannot be found is skipped and recorded in the Summary; only load
// failures and invalid settings are returned as errors.
//
// # Usage
//
//	r := registrar.New(di.NewCollection(), resolver.New(catalog))
//	if err := r.WireAll(ctx, cfg.Services); err != nil {
//		return err
//	}
//	provider := r.Services().Build()
package registrar
