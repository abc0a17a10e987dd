package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/plugwire/component"
	"github.com/kbukum/plugwire/config"
	"github.com/kbukum/plugwire/di"
	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/module"
	"github.com/kbukum/plugwire/observability"
	"github.com/kbukum/plugwire/registrar"
	"github.com/kbukum/plugwire/resolver"
	"github.com/kbukum/plugwire/version"
)

const meterName = "github.com/kbukum/plugwire"

// App is a wiring host with uniform lifecycle management.
//
// Example:
//
//	app, err := bootstrap.NewApp(cfg)
//	app.OnReady(func(ctx context.Context) error {
//	    _, err := di.Resolve[Greeter](app.Provider)
//	    return err
//	})
//	err = app.RunTask(ctx, task)
type App struct {
	Name       string
	Version    string
	Cfg        *config.WiringConfig
	Components *component.Registry
	Logger     *logger.Logger

	// Set once services are wired.
	Catalog   *module.Catalog
	Resolver  *resolver.Resolver
	Registrar *registrar.Registrar
	Provider  *di.Provider

	opts            *appOptions
	output          io.Writer
	gracefulTimeout time.Duration
	startupDuration time.Duration

	onStart []Hook
	onWired []WiringHook
	onReady []Hook
	onStop  []Hook
}

// NewApp creates a host from cfg. It applies defaults, validates the
// config, initializes the logger and registers the telemetry components
// the config enables.
func NewApp(cfg *config.WiringConfig, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		opts:            o,
		output:          os.Stdout,
		gracefulTimeout: 15 * time.Second,
	}
	if app.Version == "" {
		app.Version = version.GetShortVersion()
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.output != nil {
		app.output = o.output
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&cfg.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	logger.RegisterDefaults(app.Logger)
	app.Components = component.NewRegistry(component.WithStopTimeout(app.gracefulTimeout))

	if cfg.Telemetry.Tracing {
		if err := app.RegisterComponent(newTracingComponent(cfg.TracerConfig())); err != nil {
			return nil, err
		}
	}
	if cfg.Telemetry.Metrics {
		if err := app.RegisterComponent(newMetricsComponent(cfg.MeterConfig())); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// RegisterComponent adds a component to the host's registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// ReadyCheck fails when a registered component reports unhealthy.
// Degraded components pass.
func (a *App) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusUnhealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Start runs startup for hosts that manage their own lifecycle: components,
// OnStart hooks, wiring, OnReady hooks and the summary.
func (a *App) Start(ctx context.Context) error {
	return a.startup(ctx)
}

// RunTask starts the host, runs task and shuts down when the task returns
// or SIGINT/SIGTERM cancels it.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.Error("shutdown after failed startup", logger.MergeWithError(nil, stopErr))
		}
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Shutdown stops the host. Use with Start.
func (a *App) Shutdown(ctx context.Context) error {
	return a.stop()
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()
	fields := version.GetVersionInfo().Fields()
	fields["name"] = a.Name
	fields["version"] = a.Version
	fields["services"] = len(a.Cfg.Services)
	a.Logger.Info("starting wiring host", fields)

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	if err := phaseStart.run(ctx, a.onStart); err != nil {
		return err
	}
	if err := a.wire(ctx); err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.MergeWithError(nil, err))
	}
	if err := phaseReady.run(ctx, a.onReady); err != nil {
		return err
	}

	a.startupDuration = time.Since(start)
	a.DisplaySummary(a.output)
	return nil
}

// wire builds the module stack, wires every configured service, runs the
// OnWired hooks and freezes the registrations into the provider.
func (a *App) wire(ctx context.Context) error {
	var metrics *observability.WiringMetrics
	if a.Cfg.Telemetry.Metrics {
		m, err := observability.NewWiringMetrics(observability.Meter(meterName))
		if err != nil {
			return err
		}
		metrics = m
	}

	catalogOpts := []module.Option{
		module.WithExtension(a.Cfg.Modules.Extension),
		module.WithMetrics(metrics),
	}
	if a.opts.fs != nil {
		catalogOpts = append(catalogOpts, module.WithFs(a.opts.fs))
	}
	if a.opts.loader != nil {
		catalogOpts = append(catalogOpts, module.WithLoader(a.opts.loader))
	}

	a.Catalog = module.NewCatalog(catalogOpts...)
	a.Resolver = resolver.New(a.Catalog, resolver.WithMetrics(metrics))
	a.Registrar = registrar.New(di.NewCollection(), a.Resolver,
		registrar.WithMetrics(metrics),
		registrar.WithContracts(a.opts.contracts...),
	)

	if err := a.Registrar.WireAll(ctx, a.Cfg.Services); err != nil {
		return err
	}
	if err := phaseWired.runWiring(ctx, a.Registrar, a.onWired); err != nil {
		return err
	}
	a.Provider = a.Registrar.Services().Build()
	return nil
}

// stop closes the provider and stops all components within the graceful
// timeout.
func (a *App) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := phaseStop.run(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.MergeWithError(nil, err))
		shutdownErr = err
	}

	if a.Provider != nil {
		if err := a.Provider.Close(); err != nil {
			a.Logger.Error("provider close error", logger.MergeWithError(nil, err))
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	}

	if err := a.Components.StopAll(ctx); err != nil {
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	a.Logger.Info("wiring host stopped")
	return shutdownErr
}
