package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/kbukum/plugwire/module"
	"github.com/kbukum/plugwire/observability"
	"github.com/kbukum/plugwire/registrar"
	"github.com/kbukum/plugwire/validation"
)

// WiringConfig is the configuration of a wiring host: the service basics,
// where modules come from, telemetry and the services to wire.
//
// Example config.yml:
//
//	name: greeter-host
//	modules:
//	  extension: .so
//	services:
//	  greeter:
//	    service_type: Greeter
//	    module_path: ./plugins
type WiringConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Modules       ModulesConfig                         `yaml:"modules" mapstructure:"modules"`
	Telemetry     TelemetryConfig                       `yaml:"telemetry" mapstructure:"telemetry"`
	Services      map[string]registrar.ServiceSettings `yaml:"services" mapstructure:"services"`
}

// ModulesConfig controls unit discovery.
type ModulesConfig struct {
	// Extension is the file extension of unit files.
	Extension string `yaml:"extension" mapstructure:"extension"`
}

// TelemetryConfig enables OTLP export of wiring spans and metrics.
type TelemetryConfig struct {
	Tracing    bool          `yaml:"tracing" mapstructure:"tracing"`
	Metrics    bool          `yaml:"metrics" mapstructure:"metrics"`
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults applies default values, including the embedded
// ServiceConfig defaults.
func (c *WiringConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Modules.Extension == "" {
		c.Modules.Extension = module.DefaultExtension
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = 15 * time.Second
	}
}

// Validate validates the configuration. Every service needs an explicit
// service_type since config keys are case-folded on load.
func (c *WiringConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}

	v := validation.New()
	v.Merge(v.Within("modules").Extension("extension", c.Modules.Extension))
	v.Merge(v.Within("telemetry").Range("sample_rate", c.Telemetry.SampleRate, 0, 1))
	services := v.Within("services")
	for _, name := range c.ServiceNames() {
		services.Merge(services.Within(name).Required("service_type", c.Services[name].ServiceTypeName))
	}
	v.Merge(services)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	for _, name := range c.ServiceNames() {
		if err := validation.Validate(c.Services[name]); err != nil {
			return fmt.Errorf("config.services.%s: %w", name, err)
		}
	}
	return nil
}

// ServiceNames returns the configured service names in order.
func (c *WiringConfig) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TracerConfig returns the tracer settings derived from the config.
func (c *WiringConfig) TracerConfig() *observability.TracerConfig {
	return &observability.TracerConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// MeterConfig returns the meter settings derived from the config.
func (c *WiringConfig) MeterConfig() *observability.MeterConfig {
	return &observability.MeterConfig{
		ServiceName:    c.Name,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		Interval:       c.Telemetry.Interval,
	}
}
