package bootstrap

import (
	"context"
	"fmt"

	"github.com/kbukum/plugwire/registrar"
)

// Hook is a callback run at a point of the host lifecycle.
type Hook func(ctx context.Context) error

// WiringHook runs once the configured services are registered and before
// the provider is built. It can add services or decorate the registered
// ones through r.Services().
type WiringHook func(ctx context.Context, r *registrar.Registrar) error

type phase string

const (
	phaseStart phase = "onStart"
	phaseWired phase = "onWired"
	phaseReady phase = "onReady"
	phaseStop  phase = "onStop"
)

// OnStart adds hooks that run once components are started, before any
// service is wired. Use them to prepare module directories.
func (a *App) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnWired adds hooks that run between wiring and the provider build.
//
//	app.OnWired(func(ctx context.Context, r *registrar.Registrar) error {
//	    return intercept.For[Greeter](r.Services(), NewLoggingGreeter)
//	})
func (a *App) OnWired(hooks ...WiringHook) {
	a.onWired = append(a.onWired, hooks...)
}

// OnReady adds hooks that run once the provider is built. The provider
// can be resolved from here on.
func (a *App) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop adds hooks that run on shutdown, before the provider is closed.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// run executes the hooks of p in order and stops at the first error.
func (p phase) run(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d failed: %w", p, i, err)
		}
	}
	return nil
}

func (p phase) runWiring(ctx context.Context, r *registrar.Registrar, hooks []WiringHook) error {
	for i, h := range hooks {
		if err := h(ctx, r); err != nil {
			return fmt.Errorf("%s hook %d failed: %w", p, i, err)
		}
	}
	return nil
}
