package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/plugwire/errors"
	"github.com/kbukum/plugwire/logger"
)

// DefaultStopTimeout bounds the Stop call of each component.
const DefaultStopTimeout = 10 * time.Second

type slot struct {
	component Component
	started   bool
}

// Registry starts components in registration order and stops the started
// ones in reverse order.
type Registry struct {
	mu          sync.RWMutex
	slots       []*slot
	byName      map[string]*slot
	stopTimeout time.Duration
	log         *logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStopTimeout bounds each component's Stop call.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Registry) { r.stopTimeout = d }
}

// WithLogger sets the registry logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:      make(map[string]*slot),
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("component")
	}
	return r
}

// Register adds c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.byName[name]; exists {
		return errors.InvalidInput("component", fmt.Sprintf("component %s already registered", name))
	}
	s := &slot{component: c}
	r.slots = append(r.slots, s)
	r.byName[name] = s

	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component in registration order and stops at the
// first failure. Components started before the failure stay started so
// StopAll can release them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("starting components", logger.Fields("count", len(r.slots)))
	for _, s := range r.slots {
		if s.started {
			continue
		}
		name := s.component.Name()
		begin := time.Now()
		if err := s.component.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.MergeWithError(
				logger.Fields(logger.FieldComponent, name), err))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		s.started = true
		r.log.Debug("component started", logger.DurationFields(name, time.Since(begin)))
	}
	return nil
}

// StopAll stops the started components in reverse order. Every component
// gets its Stop call; the failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := r.slots[i]
		if !s.started {
			continue
		}
		if err := r.stop(ctx, s); err != nil {
			errs = append(errs, err)
		}
		s.started = false
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, s *slot) error {
	name := s.component.Name()
	stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()

	if err := s.component.Stop(stopCtx); err != nil {
		r.log.Error("component stop failed", logger.MergeWithError(
			logger.Fields(logger.FieldComponent, name), err))
		return fmt.Errorf("failed to stop %s: %w", name, err)
	}
	r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, name))
	return nil
}

// HealthAll returns the health of every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.slots))
	for _, s := range r.slots {
		results = append(results, s.component.Health(ctx))
	}
	return results
}

// Status is a component's health together with its description.
type Status struct {
	Health      Health
	Description Description
	Started     bool
}

// Statuses reports every component in registration order. Components that
// are not Describable are described by their name only.
func (r *Registry) Statuses(ctx context.Context) []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.slots))
	for _, s := range r.slots {
		st := Status{
			Health:      s.component.Health(ctx),
			Description: Description{Name: s.component.Name()},
			Started:     s.started,
		}
		if d, ok := s.component.(Describable); ok {
			st.Description = d.Describe()
			if st.Description.Name == "" {
				st.Description.Name = s.component.Name()
			}
		}
		out = append(out, st)
	}
	return out
}

// Get returns the component called name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byName[name]; ok {
		return s.component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, 0, len(r.slots))
	for _, s := range r.slots {
		out = append(out, s.component)
	}
	return out
}
