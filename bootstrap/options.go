package bootstrap

import (
	"io"
	"reflect"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/module"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	fs              afero.Fs
	loader          module.Loader
	contracts       []reflect.Type
	output          io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithFs discovers module units on fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *appOptions) {
		o.fs = fs
	}
}

// WithLoader opens units with l instead of the plugin loader.
func WithLoader(l module.Loader) Option {
	return func(o *appOptions) {
		o.loader = l
	}
}

// WithContracts makes host-side contracts available to by-name wiring.
func WithContracts(contracts ...reflect.Type) Option {
	return func(o *appOptions) {
		o.contracts = append(o.contracts, contracts...)
	}
}

// WithOutput sets where the startup summary is written. Defaults to
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.output = w
	}
}
