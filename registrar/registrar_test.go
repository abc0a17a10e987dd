package registrar

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kbukum/plugwire/di"
	"github.com/kbukum/plugwire/errors"
	"github.com/kbukum/plugwire/module"
	"github.com/kbukum/plugwire/resolver"
)

type Greeter interface{ Greet() string }

type Farewell interface{ Bye() string }

type EnglishGreeter struct{}

func (*EnglishGreeter) Greet() string { return "hello" }

type V2Greeter struct{}

func (V2Greeter) Greet() string { return "hello v2" }

// ConfiguredGreeter implements Greeter only through its pointer.
type ConfiguredGreeter struct {
	Salutation string `json:"salutation"`
}

func (g *ConfiguredGreeter) Greet() string { return g.Salutation }

type GreetingSettings struct {
	Salutation string `json:"salutation"`
}

type Goodbye struct{}

func (Goodbye) Bye() string { return "bye" }

type GreeterFactory struct{}

func (*GreeterFactory) Produce(_ *di.Provider, _ reflect.Type, key any) (any, error) {
	if key == "v2" {
		return V2Greeter{}, nil
	}
	return &EnglishGreeter{}, nil
}

var greeterType = di.TypeOf[Greeter]()

const (
	greetersPath   = "/plugins/greeters/english.so"
	configuredPath = "/plugins/config/configured.so"
	farewellPath   = "/plugins/farewell/goodbye.so"
	providersPath  = "/providers/greeters.so"
)

func manifests() map[string]*module.Manifest {
	return map[string]*module.Manifest{
		greetersPath: module.NewManifest("greeters",
			module.Contract[Greeter](),
			module.Implementation("EnglishGreeter", func() *EnglishGreeter { return &EnglishGreeter{} }),
		),
		configuredPath: module.NewManifest("config",
			module.Implementation("ConfiguredGreeter", func() ConfiguredGreeter { return ConfiguredGreeter{} }),
			module.Implementation("GreetingSettings", func() GreetingSettings { return GreetingSettings{} }),
		),
		farewellPath: module.NewManifest("farewell",
			module.Contract[Farewell](),
			module.Implementation("Goodbye", func() Goodbye { return Goodbye{} }),
		),
		providersPath: module.NewManifest("providers",
			module.Implementation("GreeterFactory", func() *GreeterFactory { return &GreeterFactory{} }),
		),
	}
}

func newRegistrar(t *testing.T, opts ...Option) *Registrar {
	t.Helper()
	fs := afero.NewMemMapFs()
	reg := module.NewRegistry()
	for path, m := range manifests() {
		if err := afero.WriteFile(fs, path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		reg.Register(path, m)
	}
	catalog := module.NewCatalog(module.WithFs(fs), module.WithLoader(reg))
	return New(di.NewCollection(), resolver.New(catalog), opts...)
}

func greet(t *testing.T, p *di.Provider, key any) string {
	t.Helper()
	inst, err := p.Resolve(greeterType, key)
	if err != nil {
		t.Fatalf("Resolve(%v): %v", key, err)
	}
	return inst.(Greeter).Greet()
}

func lastEntry(t *testing.T, r *Registrar) Entry {
	t.Helper()
	entries := r.Summary().Entries()
	if len(entries) == 0 {
		t.Fatal("expected a summary entry")
	}
	return entries[len(entries)-1]
}

func TestAddServiceRegistersSingleton(t *testing.T) {
	ctx := context.Background()
	r := newRegistrar(t)

	if err := r.AddService(ctx, greeterType, greetersPath); err != nil {
		t.Fatalf("AddService: %v", err)
	}
	p := r.Services().Build()

	first, err := p.Resolve(greeterType, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, _ := p.Resolve(greeterType, nil)
	if first != second {
		t.Error("expected the same instance on every resolution")
	}
	if _, ok := first.(*EnglishGreeter); !ok {
		t.Errorf("expected *EnglishGreeter, got %T", first)
	}

	e := lastEntry(t, r)
	if e.Outcome != OutcomeRegistered || e.Strategy != StrategyType || e.Implementation != "EnglishGreeter" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestAddServiceFromDirectory(t *testing.T) {
	r := newRegistrar(t)
	if err := r.AddService(context.Background(), greeterType, "/plugins"); err != nil {
		t.Fatalf("AddService: %v", err)
	}
	if got := greet(t, r.Services().Build(), nil); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestAddServiceSkipsWithoutImplementation(t *testing.T) {
	r := newRegistrar(t)
	if err := r.AddService(context.Background(), greeterType, farewellPath); err != nil {
		t.Fatalf("expected best-effort skip, got %v", err)
	}
	if n := r.Services().Len(); n != 0 {
		t.Errorf("expected no registrations, got %d", n)
	}
	e := lastEntry(t, r)
	if e.Outcome != OutcomeSkipped || e.Reason != ReasonNoImplementation {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestAddServiceMissingModuleFails(t *testing.T) {
	r := newRegistrar(t)
	err := r.AddService(context.Background(), greeterType, "/plugins/missing.so")
	if !errors.Is(err, errors.ErrCodeModuleNotFound) {
		t.Fatalf("expected MODULE_NOT_FOUND, got %v", err)
	}
	if e := lastEntry(t, r); e.Outcome != OutcomeFailed {
		t.Errorf("expected failed outcome, got %s", e.Outcome)
	}
}

func TestAddKeyedService(t *testing.T) {
	r := newRegistrar(t)
	if err := r.AddKeyedService(context.Background(), greeterType, greetersPath, "en"); err != nil {
		t.Fatalf("AddKeyedService: %v", err)
	}
	p := r.Services().Build()
	if !p.IsRegistered(greeterType, "en") {
		t.Error("expected keyed registration")
	}
	if p.IsRegistered(greeterType, nil) {
		t.Error("keyed registration must not register unkeyed")
	}
}

func TestAddServiceByName(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		contract string
		path     string
		want     Outcome
		reason   string
	}{
		{"contract exported by module", nil, "Greet", greetersPath, OutcomeRegistered, ""},
		{"host contract", []Option{WithContracts(greeterType)}, "Greeter", "/plugins", OutcomeRegistered, ""},
		{"unknown contract", nil, "Weather", greetersPath, OutcomeSkipped, ReasonNoContract},
		{"other contract", nil, "Farewell", farewellPath, OutcomeRegistered, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRegistrar(t, tc.opts...)
			if err := r.AddServiceByName(context.Background(), tc.contract, tc.path); err != nil {
				t.Fatalf("AddServiceByName: %v", err)
			}
			e := lastEntry(t, r)
			if e.Outcome != tc.want || e.Reason != tc.reason {
				t.Errorf("got %s/%s, want %s/%s", e.Outcome, e.Reason, tc.want, tc.reason)
			}
		})
	}
}

func TestImplementationFactory(t *testing.T) {
	ctx := context.Background()
	r := newRegistrar(t)

	if err := r.AddServiceByImplementationFactory(ctx, greeterType, providersPath, nil); err != nil {
		t.Fatalf("unkeyed: %v", err)
	}
	if err := r.AddKeyedServiceByImplementationFactory(ctx, greeterType, providersPath, "v2"); err != nil {
		t.Fatalf("keyed: %v", err)
	}
	p := r.Services().Build()

	if got := greet(t, p, nil); got != "hello" {
		t.Errorf("unkeyed: expected hello, got %q", got)
	}
	if got := greet(t, p, "v2"); got != "hello v2" {
		t.Errorf("keyed: expected hello v2, got %q", got)
	}
	if e := lastEntry(t, r); e.Strategy != StrategyFactory || e.Key != "v2" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestImplementationFactoryWithImplementationKey(t *testing.T) {
	r := newRegistrar(t)
	if err := r.AddServiceByImplementationFactory(context.Background(), greeterType, providersPath, "v2"); err != nil {
		t.Fatalf("AddServiceByImplementationFactory: %v", err)
	}
	p := r.Services().Build()
	if p.IsRegistered(greeterType, "v2") {
		t.Error("implementation key must not become a registration key")
	}
	if got := greet(t, p, nil); got != "hello v2" {
		t.Errorf("expected the factory to receive v2, got %q", got)
	}
}

func TestImplementationFactoryByName(t *testing.T) {
	r := newRegistrar(t)
	err := r.AddKeyedServiceByImplementationFactoryName(context.Background(), "Greeter", providersPath, greetersPath, "v2")
	if err != nil {
		t.Fatalf("AddKeyedServiceByImplementationFactoryName: %v", err)
	}
	if got := greet(t, r.Services().Build(), "v2"); got != "hello v2" {
		t.Errorf("expected hello v2, got %q", got)
	}
}

func TestImplementationFactorySkipsWithoutFactory(t *testing.T) {
	r := newRegistrar(t)
	if err := r.AddServiceByImplementationFactory(context.Background(), greeterType, greetersPath, nil); err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
	if r.Services().Len() != 0 {
		t.Error("expected no registrations")
	}
	if e := lastEntry(t, r); e.Reason != ReasonNoFactory {
		t.Errorf("expected %s, got %s", ReasonNoFactory, e.Reason)
	}
}

func TestAddServiceValueFromJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		reason string
	}{
		{"pointer implementer", `{"salutation":"hi"}`, "hi", ""},
		{"null", `null`, "", ReasonNoValue},
		{"invalid", `{"salutation":`, "", ReasonNoValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRegistrar(t)
			if err := r.AddServiceValueFromJSON(context.Background(), greeterType, configuredPath, []byte(tc.raw)); err != nil {
				t.Fatalf("AddServiceValueFromJSON: %v", err)
			}
			if tc.reason != "" {
				if r.Services().Len() != 0 {
					t.Error("expected no registrations")
				}
				if e := lastEntry(t, r); e.Reason != tc.reason {
					t.Errorf("expected %s, got %s", tc.reason, e.Reason)
				}
				return
			}
			p := r.Services().Build()
			inst, _ := p.Resolve(greeterType, nil)
			if _, ok := inst.(*ConfiguredGreeter); !ok {
				t.Errorf("expected *ConfiguredGreeter, got %T", inst)
			}
			if got := greet(t, p, nil); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddKeyedServiceValueFromJSON(t *testing.T) {
	r := newRegistrar(t)
	err := r.AddKeyedServiceValueFromJSON(context.Background(), greeterType, configuredPath, []byte(`{"salutation":"hey"}`), "casual")
	if err != nil {
		t.Fatalf("AddKeyedServiceValueFromJSON: %v", err)
	}
	if got := greet(t, r.Services().Build(), "casual"); got != "hey" {
		t.Errorf("expected hey, got %q", got)
	}
}

func TestAddServiceValueFromJSONByName(t *testing.T) {
	r := newRegistrar(t)
	if err := r.AddServiceValueFromJSONByName(context.Background(), "Settings", configuredPath, []byte(`{"salutation":"yo"}`), nil); err != nil {
		t.Fatalf("AddServiceValueFromJSONByName: %v", err)
	}
	p := r.Services().Build()
	inst, err := p.Resolve(reflect.TypeOf(GreetingSettings{}), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if inst.(GreetingSettings).Salutation != "yo" {
		t.Errorf("unexpected value %+v", inst)
	}
}

func TestBySettingsPrecedence(t *testing.T) {
	r := newRegistrar(t)
	s := ServiceSettings{
		ServiceTypeName: "Greeter",
		ModulePath:      configuredPath,
		ProviderPath:    providersPath,
		Value:           `{"salutation":"ignored"}`,
	}
	if err := r.AddServiceBySettings(context.Background(), greeterType, s, nil); err != nil {
		t.Fatalf("AddServiceBySettings: %v", err)
	}
	if got := greet(t, r.Services().Build(), nil); got != "hello" {
		t.Errorf("expected factory-built greeter, got %q", got)
	}
	if e := lastEntry(t, r); e.Strategy != StrategyFactory {
		t.Errorf("expected factory strategy, got %s", e.Strategy)
	}
}

func TestKeyedSettingsSymmetry(t *testing.T) {
	tests := []struct {
		name     string
		settings ServiceSettings
		strategy string
	}{
		{"type", ServiceSettings{ModulePath: greetersPath}, StrategyType},
		{"value", ServiceSettings{ModulePath: configuredPath, ImplementationTypeName: "Configured", Value: map[string]any{"salutation": "hi"}}, StrategyValue},
		{"factory", ServiceSettings{ProviderPath: providersPath}, StrategyFactory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			r := newRegistrar(t)
			if err := r.AddKeyedServiceBySettings(ctx, greeterType, tc.settings, "k"); err != nil {
				t.Fatalf("keyed: %v", err)
			}
			if err := r.AddServiceBySettings(ctx, greeterType, tc.settings, nil); err != nil {
				t.Fatalf("unkeyed: %v", err)
			}
			p := r.Services().Build()
			if !p.IsRegistered(greeterType, "k") || !p.IsRegistered(greeterType, nil) {
				t.Error("expected both keyed and unkeyed registrations")
			}
			for _, e := range r.Summary().Entries() {
				if e.Strategy != tc.strategy || e.Outcome != OutcomeRegistered {
					t.Errorf("unexpected entry %+v", e)
				}
			}
		})
	}
}

func TestBySettingsNotAssignable(t *testing.T) {
	r := newRegistrar(t)
	s := ServiceSettings{ModulePath: farewellPath, ImplementationTypeName: "Goodbye"}
	if err := r.AddServiceBySettings(context.Background(), greeterType, s, nil); err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
	if e := lastEntry(t, r); e.Reason != ReasonNotAssignable {
		t.Errorf("expected %s, got %s", ReasonNotAssignable, e.Reason)
	}
}

func TestBySettingsInvalid(t *testing.T) {
	ctx := context.Background()
	r := newRegistrar(t)

	if err := r.AddServiceBySettings(ctx, greeterType, ServiceSettings{}, nil); !errors.Is(err, errors.ErrCodeInvalidSettings) {
		t.Errorf("expected INVALID_SETTINGS without paths, got %v", err)
	}
	if err := r.AddServiceBySettingsName(ctx, ServiceSettings{ModulePath: greetersPath}, nil); !errors.Is(err, errors.ErrCodeInvalidSettings) {
		t.Errorf("expected INVALID_SETTINGS without service type, got %v", err)
	}
	if r.Summary().Count(OutcomeFailed) != 2 {
		t.Errorf("expected 2 failed entries, got %d", r.Summary().Count(OutcomeFailed))
	}
}

func TestBySettingsName(t *testing.T) {
	r := newRegistrar(t)
	s := ServiceSettings{ServiceTypeName: "Greeter", ModulePath: greetersPath}
	if err := r.AddKeyedServiceBySettingsName(context.Background(), s, "en"); err != nil {
		t.Fatalf("AddKeyedServiceBySettingsName: %v", err)
	}
	if got := greet(t, r.Services().Build(), "en"); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestWireAll(t *testing.T) {
	r := newRegistrar(t, WithContracts(greeterType))
	services := map[string]ServiceSettings{
		"Greeter":  {ModulePath: greetersPath},
		"casual":   {ServiceTypeName: "Greeter", ModulePath: configuredPath, Value: `{"salutation":"hey"}`, Key: "casual"},
		"Farewell": {ModulePath: farewellPath},
		"Weather":  {ModulePath: farewellPath},
	}
	if err := r.WireAll(context.Background(), services); err != nil {
		t.Fatalf("WireAll: %v", err)
	}

	entries := r.Summary().Entries()
	order := make([]string, len(entries))
	for i, e := range entries {
		order[i] = e.Service
	}
	if got := strings.Join(order, ","); got != "Farewell,Greeter,Weather,casual" {
		t.Errorf("unexpected order %s", got)
	}
	if r.Summary().Count(OutcomeRegistered) != 3 || r.Summary().Count(OutcomeSkipped) != 1 {
		t.Errorf("unexpected counts in %+v", entries)
	}

	p := r.Services().Build()
	if got := greet(t, p, nil); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if got := greet(t, p, "casual"); got != "hey" {
		t.Errorf("expected hey, got %q", got)
	}
}

func TestWireAllStopsOnError(t *testing.T) {
	r := newRegistrar(t)
	services := map[string]ServiceSettings{
		"a": {ServiceTypeName: "Greeter", ModulePath: "/missing.so"},
		"b": {ServiceTypeName: "Greeter", ModulePath: greetersPath},
	}
	if err := r.WireAll(context.Background(), services); !errors.Is(err, errors.ErrCodeModuleNotFound) {
		t.Fatalf("expected MODULE_NOT_FOUND, got %v", err)
	}
	if n := len(r.Summary().Entries()); n != 1 {
		t.Errorf("expected wiring to stop after the first entry, got %d entries", n)
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name     string
		settings ServiceSettings
		want     Plan
	}{
		{"provider wins", ServiceSettings{ProviderPath: "/p", ModulePath: "/m", Value: "1"}, FactoryPlan{ProviderPath: "/p"}},
		{"value", ServiceSettings{ModulePath: "/m", ImplementationTypeName: "X", Value: "1"}, ValuePlan{ModulePath: "/m", ImplementationName: "X", Value: []byte("1")}},
		{"value without module", ServiceSettings{Value: "1"}, TypePlan{}},
		{"type", ServiceSettings{ModulePath: "/m"}, TypePlan{ModulePath: "/m"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePlan(tc.settings)
			if err != nil {
				t.Fatalf("ParsePlan: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestParsePlanUnencodableValue(t *testing.T) {
	_, err := ParsePlan(ServiceSettings{ModulePath: "/m", Value: make(chan int)})
	if !errors.Is(err, errors.ErrCodeInvalidSettings) {
		t.Errorf("expected INVALID_SETTINGS, got %v", err)
	}
}

func TestValueJSON(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"empty string", "", ""},
		{"text", `{"a":1}`, `{"a":1}`},
		{"bytes", []byte(`[1]`), `[1]`},
		{"tree", map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ServiceSettings{Value: tc.value}.ValueJSON()
			if err != nil {
				t.Fatalf("ValueJSON: %v", err)
			}
			if string(raw) != tc.want {
				t.Errorf("got %q, want %q", raw, tc.want)
			}
		})
	}
}

func TestSummaryDisplay(t *testing.T) {
	r := newRegistrar(t)
	ctx := context.Background()
	_ = r.AddKeyedService(ctx, greeterType, greetersPath, "en")
	_ = r.AddService(ctx, greeterType, farewellPath)

	var buf bytes.Buffer
	r.Summary().Display(&buf)
	out := buf.String()
	for _, want := range []string{"Wired 2 services", "[en]", "EnglishGreeter", ReasonNoImplementation, "(1/2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSummaryDisplayEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewSummary().Display(&buf)
	if !strings.Contains(buf.String(), "No services configured") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestBySettingsZeroMatchRegistersNothing(t *testing.T) {
	tests := []struct {
		name     string
		settings ServiceSettings
	}{
		{"no implementer", ServiceSettings{ModulePath: farewellPath}},
		{"not assignable", ServiceSettings{ModulePath: farewellPath, ImplementationTypeName: "Goodbye"}},
		{"unknown implementation", ServiceSettings{ModulePath: greetersPath, ImplementationTypeName: "FrenchGreeter"}},
		{"value without implementer", ServiceSettings{ModulePath: farewellPath, Value: `{"salutation":"hi"}`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			r := newRegistrar(t)
			if err := r.AddServiceBySettings(ctx, greeterType, tc.settings, nil); err != nil {
				t.Fatalf("unkeyed: expected skip, got %v", err)
			}
			if err := r.AddKeyedServiceBySettings(ctx, greeterType, tc.settings, "k"); err != nil {
				t.Fatalf("keyed: expected skip, got %v", err)
			}
			if n := r.Services().Count(greeterType); n != 0 {
				t.Errorf("expected no registrations, got %d", n)
			}
			if n := r.Summary().Count(OutcomeSkipped); n != 2 {
				t.Errorf("expected 2 skipped entries, got %d", n)
			}
		})
	}
}

func TestBySettingsUnkeyedSingleton(t *testing.T) {
	r := newRegistrar(t)
	s := ServiceSettings{ModulePath: greetersPath, ImplementationTypeName: "EnglishGreeter"}
	if err := r.AddServiceBySettings(context.Background(), greeterType, s, nil); err != nil {
		t.Fatalf("AddServiceBySettings: %v", err)
	}
	if n := r.Services().Count(greeterType); n != 1 {
		t.Fatalf("expected 1 registration, got %d", n)
	}
	p := r.Services().Build()

	first, err := p.Resolve(greeterType, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := p.Resolve(greeterType, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first != second {
		t.Error("expected the same instance on both resolutions")
	}
	if _, ok := first.(*EnglishGreeter); !ok {
		t.Errorf("expected *EnglishGreeter, got %T", first)
	}
	if e := lastEntry(t, r); e.Strategy != StrategyType || e.Implementation != "EnglishGreeter" {
		t.Errorf("unexpected entry %+v", e)
	}
}
