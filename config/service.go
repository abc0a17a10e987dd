package config

import (
	"fmt"

	"github.com/kbukum/plugwire/logger"
	"github.com/kbukum/plugwire/validation"
)

// Environments a wiring host may run in.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig identifies the wiring host. WiringConfig embeds it.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills the environment and tags logs with the host name.
// Development hosts log at debug.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// check adds the host identity checks to v.
func (c *ServiceConfig) check(v *validation.Validator) {
	v.Required("name", c.Name).
		OneOf("environment", c.Environment, Environments...)
}

// Validate checks the host identity and the logging section.
func (c *ServiceConfig) Validate() error {
	v := validation.New().Within("config")
	c.check(v)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
