package registrar

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/plugwire/di"
	"github.com/kbukum/plugwire/errors"
	"github.com/kbukum/plugwire/factory"
	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/module"
	"github.com/kbukum/plugwire/observability"
	"github.com/kbukum/plugwire/resolver"
	"github.com/kbukum/plugwire/validation"
)

// Option configures a Registrar.
type Option func(*Registrar)

// WithMetrics records registrations and skips on m.
func WithMetrics(m *observability.WiringMetrics) Option {
	return func(r *Registrar) { r.metrics = m }
}

// WithLogger sets the registrar logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registrar) { r.log = l }
}

// WithContracts makes host-side contracts available to by-name wiring.
// They are matched before any module is searched.
func WithContracts(contracts ...reflect.Type) Option {
	return func(r *Registrar) { r.contracts = append(r.contracts, contracts...) }
}

// Registrar decides how each service is wired and emits the registration
// into a di.Collection. It is not safe for concurrent use.
type Registrar struct {
	services  *di.Collection
	resolver  *resolver.Resolver
	contracts []reflect.Type
	metrics   *observability.WiringMetrics
	log       *logger.Logger
	summary   *Summary
}

// New creates a registrar emitting into services and resolving types
// through res.
func New(services *di.Collection, res *resolver.Resolver, opts ...Option) *Registrar {
	r := &Registrar{
		services: services,
		resolver: res,
		summary:  NewSummary(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("registrar")
	}
	return r
}

// Services returns the collection registrations are emitted into.
func (r *Registrar) Services() *di.Collection { return r.services }

// Summary returns the record of every wiring decision so far.
func (r *Registrar) Summary() *Summary { return r.summary }

// AddService registers the first implementation of contract found at
// modulePath as a singleton. Nothing is registered when no implementation
// is found.
func (r *Registrar) AddService(ctx context.Context, contract reflect.Type, modulePath string) error {
	return r.AddKeyedService(ctx, contract, modulePath, nil)
}

// AddKeyedService is AddService under key.
func (r *Registrar) AddKeyedService(ctx context.Context, contract reflect.Type, modulePath string, key any) error {
	o := r.start(ctx, contract.String(), StrategyType, key, observability.AttrModulePath, modulePath)
	return r.addType(o, contract, modulePath, "")
}

// AddServiceByName is AddService with the contract found by name
// fragment, first among the host contracts and then at modulePath.
func (r *Registrar) AddServiceByName(ctx context.Context, contractName, modulePath string) error {
	return r.AddKeyedServiceByName(ctx, contractName, modulePath, nil)
}

// AddKeyedServiceByName is AddServiceByName under key.
func (r *Registrar) AddKeyedServiceByName(ctx context.Context, contractName, modulePath string, key any) error {
	o := r.start(ctx, contractName, StrategyType, key, observability.AttrModulePath, modulePath)
	contract, err := r.contract(o.ctx, contractName, modulePath)
	if err != nil {
		return r.fail(o, err)
	}
	if contract == nil {
		return r.skip(o, ReasonNoContract)
	}
	return r.addType(o, contract, modulePath, "")
}

// AddServiceByImplementationFactory registers contract unkeyed so that
// its first resolution asks the implementation factory found at
// providerPath for the instance. implKey is passed to the factory.
func (r *Registrar) AddServiceByImplementationFactory(ctx context.Context, contract reflect.Type, providerPath string, implKey any) error {
	o := r.start(ctx, contract.String(), StrategyFactory, nil, observability.AttrProviderPath, providerPath)
	return r.addFactory(o, contract, providerPath, implKey)
}

// AddKeyedServiceByImplementationFactory registers contract under key; the
// factory receives key.
func (r *Registrar) AddKeyedServiceByImplementationFactory(ctx context.Context, contract reflect.Type, providerPath string, key any) error {
	o := r.start(ctx, contract.String(), StrategyFactory, key, observability.AttrProviderPath, providerPath)
	return r.addFactory(o, contract, providerPath, key)
}

// AddServiceByImplementationFactoryName is AddServiceByImplementationFactory
// with the contract found by name at contractPath.
func (r *Registrar) AddServiceByImplementationFactoryName(ctx context.Context, contractName, providerPath, contractPath string, implKey any) error {
	o := r.start(ctx, contractName, StrategyFactory, nil, observability.AttrProviderPath, providerPath)
	return r.addFactoryByName(o, contractName, providerPath, contractPath, implKey)
}

// AddKeyedServiceByImplementationFactoryName is
// AddKeyedServiceByImplementationFactory with the contract found by name
// at contractPath.
func (r *Registrar) AddKeyedServiceByImplementationFactoryName(ctx context.Context, contractName, providerPath, contractPath string, key any) error {
	o := r.start(ctx, contractName, StrategyFactory, key, observability.AttrProviderPath, providerPath)
	return r.addFactoryByName(o, contractName, providerPath, contractPath, key)
}

// AddServiceValueFromJSON decodes raw into the implementation of contract
// found at modulePath and registers the value as a singleton instance of
// contract. A payload that fails to decode or is null registers nothing.
func (r *Registrar) AddServiceValueFromJSON(ctx context.Context, contract reflect.Type, modulePath string, raw []byte) error {
	return r.AddKeyedServiceValueFromJSON(ctx, contract, modulePath, raw, nil)
}

// AddKeyedServiceValueFromJSON is AddServiceValueFromJSON under key.
func (r *Registrar) AddKeyedServiceValueFromJSON(ctx context.Context, contract reflect.Type, modulePath string, raw []byte, key any) error {
	o := r.start(ctx, contract.String(), StrategyValue, key, observability.AttrModulePath, modulePath)
	return r.addValue(o, contract, modulePath, "", raw)
}

// AddServiceValueFromJSONByName decodes raw into the first concrete type
// at modulePath whose name contains typeName and registers the value under
// that type itself.
func (r *Registrar) AddServiceValueFromJSONByName(ctx context.Context, typeName, modulePath string, raw []byte, key any) error {
	o := r.start(ctx, typeName, StrategyValue, key, observability.AttrModulePath, modulePath)
	exp, err := r.resolver.AtPath(o.ctx, modulePath, resolver.ByName(typeName))
	if err != nil {
		return r.fail(o, err)
	}
	if exp == nil {
		return r.skip(o, ReasonNoImplementation)
	}
	return r.emitValue(o, exp.Type, exp, raw)
}

// AddServiceBySettings wires contract according to s. The strategy is
// chosen by ParsePlan. implKey is only used by the factory strategy, which
// passes it to the factory while registering contract unkeyed.
func (r *Registrar) AddServiceBySettings(ctx context.Context, contract reflect.Type, s ServiceSettings, implKey any) error {
	return r.bySettings(ctx, contract.String(), contract, s, implKey, false)
}

// AddKeyedServiceBySettings wires contract according to s under key, for
// every strategy.
func (r *Registrar) AddKeyedServiceBySettings(ctx context.Context, contract reflect.Type, s ServiceSettings, key any) error {
	return r.bySettings(ctx, contract.String(), contract, s, key, true)
}

// AddServiceBySettingsName is AddServiceBySettings with the contract found
// by s.ServiceTypeName.
func (r *Registrar) AddServiceBySettingsName(ctx context.Context, s ServiceSettings, implKey any) error {
	return r.bySettings(ctx, s.ServiceTypeName, nil, s, implKey, false)
}

// AddKeyedServiceBySettingsName is AddKeyedServiceBySettings with the
// contract found by s.ServiceTypeName.
func (r *Registrar) AddKeyedServiceBySettingsName(ctx context.Context, s ServiceSettings, key any) error {
	return r.bySettings(ctx, s.ServiceTypeName, nil, s, key, true)
}

// WireAll wires every entry of services in name order. An entry without a
// service type uses its name as the contract name; an entry with a Key is
// registered under it. WireAll stops at the first error.
func (r *Registrar) WireAll(ctx context.Context, services map[string]ServiceSettings) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanWire)
	defer func() { observability.EndSpan(span, err) }()
	started := time.Now()

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := services[name]
		if s.ServiceTypeName == "" {
			s.ServiceTypeName = name
		}
		var key any
		if s.Key != "" {
			key = s.Key
		}
		if err := r.bySettings(ctx, name, nil, s, key, key != nil); err != nil {
			return err
		}
	}

	r.summary.SetDuration(time.Since(started))
	r.log.WithContext(ctx).Info("services wired", logger.Fields(
		"services", len(names),
		"registered", r.summary.Count(OutcomeRegistered),
		"skipped", r.summary.Count(OutcomeSkipped),
	))
	return nil
}

func (r *Registrar) bySettings(ctx context.Context, service string, contract reflect.Type, s ServiceSettings, key any, keyed bool) error {
	o := r.start(ctx, service, "", nil)
	if keyed {
		o.entry.Key = key
	}

	if err := validateSettings(s, contract == nil); err != nil {
		return r.fail(o, err)
	}
	plan, err := ParsePlan(s)
	if err != nil {
		return r.fail(o, err)
	}
	o.entry.Strategy = plan.Strategy()
	o.span.SetAttributes(attribute.String(observability.AttrStrategy, plan.Strategy()))

	if contract == nil {
		contractPath := s.ModulePath
		if contractPath == "" {
			contractPath = s.ProviderPath
		}
		contract, err = r.contract(o.ctx, s.ServiceTypeName, contractPath)
		if err != nil {
			return r.fail(o, err)
		}
		if contract == nil {
			return r.skip(o, ReasonNoContract)
		}
	}

	switch p := plan.(type) {
	case FactoryPlan:
		return r.addFactory(o, contract, p.ProviderPath, key)
	case ValuePlan:
		return r.addValue(o, contract, p.ModulePath, p.ImplementationName, p.Value)
	case TypePlan:
		return r.addType(o, contract, p.ModulePath, p.ImplementationName)
	default:
		return r.fail(o, errors.InvalidSettings(service, fmt.Sprintf("unknown strategy %q", plan.Strategy())))
	}
}

func validateSettings(s ServiceSettings, byName bool) error {
	if err := validation.Validate(s); err != nil {
		if appErr, ok := errors.AsAppError(err); ok && s.ServiceTypeName != "" {
			appErr.WithDetail("service", s.ServiceTypeName)
		}
		return err
	}
	if byName {
		if appErr := validation.New().Required("service_type", s.ServiceTypeName).Validate(); appErr != nil {
			return appErr
		}
	}
	return nil
}

func (r *Registrar) addType(o *op, contract reflect.Type, modulePath, implName string) error {
	o.setContract(contract)
	exp, reason, err := r.implementation(o.ctx, contract, modulePath, implName, false)
	if err != nil {
		return r.fail(o, err)
	}
	if exp == nil {
		return r.skip(o, reason)
	}
	if _, err := r.services.AddType(contract, di.Singleton, o.entry.Key, exp.Constructor); err != nil {
		return r.fail(o, err)
	}
	return r.done(o, exp.Name)
}

func (r *Registrar) addValue(o *op, contract reflect.Type, modulePath, implName string, raw []byte) error {
	o.setContract(contract)
	exp, reason, err := r.implementation(o.ctx, contract, modulePath, implName, true)
	if err != nil {
		return r.fail(o, err)
	}
	if exp == nil {
		return r.skip(o, reason)
	}
	return r.emitValue(o, contract, exp, raw)
}

func (r *Registrar) emitValue(o *op, target reflect.Type, exp *module.Export, raw []byte) error {
	o.setContract(target)
	value, err := materialize(exp.Type, target, raw)
	if err != nil {
		r.log.WithContext(o.ctx).Debug("value not materialized", logger.MergeWithError(
			logger.Fields(logger.FieldType, exp.Name), err))
		return r.skip(o, ReasonNoValue)
	}
	if value == nil {
		return r.skip(o, ReasonNoValue)
	}
	if !reflect.TypeOf(value).AssignableTo(target) {
		return r.skip(o, ReasonNotAssignable)
	}
	if _, err := r.services.AddInstance(target, o.entry.Key, value); err != nil {
		return r.fail(o, err)
	}
	return r.done(o, exp.Name)
}

func (r *Registrar) addFactory(o *op, contract reflect.Type, providerPath string, key any) error {
	o.setContract(contract)
	exp, err := r.resolver.AtPath(o.ctx, providerPath, resolver.ByContract(factory.Capability))
	if err != nil {
		return r.fail(o, err)
	}
	if exp == nil {
		return r.skip(o, ReasonNoFactory)
	}

	switch {
	case o.entry.Key != nil:
		_, err = factory.AddKeyedSingleton(r.services, contract, o.entry.Key, exp.Constructor)
	case key != nil:
		_, err = factory.AddSingletonWithKey(r.services, contract, exp.Constructor, key)
	default:
		_, err = factory.AddSingleton(r.services, contract, exp.Constructor)
	}
	if err != nil {
		return r.fail(o, err)
	}
	return r.done(o, exp.Name)
}

func (r *Registrar) addFactoryByName(o *op, contractName, providerPath, contractPath string, key any) error {
	if contractPath == "" {
		contractPath = providerPath
	}
	contract, err := r.contract(o.ctx, contractName, contractPath)
	if err != nil {
		return r.fail(o, err)
	}
	if contract == nil {
		return r.skip(o, ReasonNoContract)
	}
	return r.addFactory(o, contract, providerPath, key)
}

// implementation finds the export wired for contract. With a name it is the
// first export matching the name that also implements contract. byPointer
// also accepts value types whose pointer implements contract.
func (r *Registrar) implementation(ctx context.Context, contract reflect.Type, path, name string, byPointer bool) (*module.Export, string, error) {
	if name == "" {
		exp, err := r.resolver.AtPath(ctx, path, resolver.ByContract(contract))
		if err != nil {
			return nil, "", err
		}
		if exp != nil {
			return exp, "", nil
		}
		if !byPointer {
			return nil, ReasonNoImplementation, nil
		}
	}

	candidates, err := r.resolver.CandidatesAtPath(ctx, path, resolver.ByName(name))
	if err != nil {
		return nil, "", err
	}
	for _, c := range candidates {
		if c.Implements(contract) || byPointer && c.ImplementsByPointer(contract) {
			return c, "", nil
		}
	}
	if name != "" && len(candidates) > 0 {
		return nil, ReasonNotAssignable, nil
	}
	return nil, ReasonNoImplementation, nil
}

func (r *Registrar) contract(ctx context.Context, name, path string) (reflect.Type, error) {
	for _, c := range r.contracts {
		if strings.Contains(c.Name(), name) {
			return c, nil
		}
	}
	if path == "" {
		return nil, nil
	}
	return r.resolver.Contract(ctx, path, name)
}

// materialize decodes raw into a new value of t. When the decoded value
// does not implement target but its pointer does, the pointer is returned.
// A null payload yields nil.
func materialize(t, target reflect.Type, raw []byte) (any, error) {
	if isNullJSON(raw) {
		return nil, nil
	}

	base, isPtr := t, false
	if t.Kind() == reflect.Pointer {
		base, isPtr = t.Elem(), true
	}
	ptr := reflect.New(base)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, err
	}

	if isPtr || (!base.AssignableTo(target) && ptr.Type().AssignableTo(target)) {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

// op tracks one wiring decision from start to outcome.
type op struct {
	ctx   context.Context
	span  trace.Span
	entry Entry
	start time.Time
}

func (o *op) setContract(contract reflect.Type) {
	o.entry.Contract = contract.String()
	o.span.SetAttributes(attribute.String(observability.AttrContract, o.entry.Contract))
}

func (r *Registrar) start(ctx context.Context, service, strategy string, key any, attrs ...string) *op {
	ctx, span := observability.StartSpan(ctx, observability.SpanRegister)
	o := &op{
		ctx:   ctx,
		span:  span,
		start: time.Now(),
		entry: Entry{Service: service, Strategy: strategy, Key: key},
	}
	if strategy != "" {
		span.SetAttributes(attribute.String(observability.AttrStrategy, strategy))
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		span.SetAttributes(attribute.String(attrs[i], attrs[i+1]))
	}
	return o
}

func (r *Registrar) done(o *op, implementation string) error {
	o.entry.Outcome = OutcomeRegistered
	o.entry.Implementation = implementation
	r.finish(o, nil)
	r.metrics.RecordRegistration(o.ctx, o.entry.Strategy, o.entry.Key != nil)
	r.log.WithContext(o.ctx).Info("service registered", r.fields(o))
	return nil
}

// skip records a best-effort miss. It never returns an error.
func (r *Registrar) skip(o *op, reason string) error {
	o.entry.Outcome = OutcomeSkipped
	o.entry.Reason = reason
	r.finish(o, nil)
	r.metrics.RecordSkip(o.ctx, o.entry.Strategy, reason)
	r.log.WithContext(o.ctx).Debug("service skipped", r.fields(o))
	return nil
}

func (r *Registrar) fail(o *op, err error) error {
	o.entry.Outcome = OutcomeFailed
	o.entry.Reason = err.Error()
	r.finish(o, err)
	r.log.WithContext(o.ctx).Error("service wiring failed", logger.MergeWithError(r.fields(o), err))
	return err
}

func (r *Registrar) finish(o *op, err error) {
	if o.entry.Contract == "" {
		o.entry.Contract = o.entry.Service
	}
	o.span.SetAttributes(
		attribute.String(observability.AttrOutcome, string(o.entry.Outcome)),
		attribute.String(observability.AttrKey, fmt.Sprint(o.entry.Key)),
	)
	observability.EndSpan(o.span, err)
	r.summary.Track(o.entry)
}

func (r *Registrar) fields(o *op) map[string]interface{} {
	f := logger.Fields(
		logger.FieldContract, o.entry.Contract,
		logger.FieldStrategy, o.entry.Strategy,
		logger.FieldDuration, time.Since(o.start).Milliseconds(),
	)
	if o.entry.Key != nil {
		f[logger.FieldKey] = o.entry.Key
	}
	if o.entry.Implementation != "" {
		f[logger.FieldType] = o.entry.Implementation
	}
	if o.entry.Reason != "" {
		f["reason"] = o.entry.Reason
	}
	return f
}
