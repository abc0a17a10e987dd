// Package config loads the wiring configuration of a plugwire host.
//
// Viper reads config.yml from the standard locations (or an explicit
// path), a .env file is exported into the environment, and variables
// prefixed with PLUGWIRE_ override file values:
//
//	PLUGWIRE_LOGGING_LEVEL=debug
//	PLUGWIRE_MODULES_EXTENSION=.so
//
// # Usage
//
//	cfg, err := config.Load("greeter-host", config.WithConfigFile("config.yml"))
//	if err != nil {
//		return err
//	}
//	err = registrar.New(services, res).WireAll(ctx, cfg.Services)
package config
