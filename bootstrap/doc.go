// Package bootstrap runs a wiring host through its lifecycle.
//
// An App starts its components (telemetry exporters when enabled), wires
// every configured service through the registrar, builds the provider and
// prints a startup summary. OnWired hooks see the registrar after the
// configured services are registered and before the provider is built,
// which is where decorators for wired services belong. Shutdown closes the
// provider and stops the components in reverse order.
//
// # Quick Start
//
//	cfg, err := config.Load("greeter-host")
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//		g, err := di.Resolve[Greeter](app.Provider)
//		...
//	})
package bootstrap
