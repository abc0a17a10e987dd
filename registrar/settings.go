package registrar

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kbukum/plugwire/errors"
)

// ServiceSettings describes one service to wire, typically one entry of
// the services section of the wiring config.
type ServiceSettings struct {
	// ServiceTypeName is a fragment of the contract name.
	ServiceTypeName string `mapstructure:"service_type" json:"service_type,omitempty"`
	// ImplementationTypeName narrows the implementation by name fragment.
	ImplementationTypeName string `mapstructure:"implementation_type" json:"implementation_type,omitempty"`
	// ModulePath is a unit file or a directory of units.
	ModulePath string `mapstructure:"module_path" json:"module_path,omitempty" validate:"required_without=ProviderPath"`
	// ProviderPath locates an implementation factory. When set it takes
	// precedence over everything else.
	ProviderPath string `mapstructure:"provider_path" json:"provider_path,omitempty"`
	// Value is a JSON payload, either raw text or a decoded config tree,
	// materialized into the implementation type.
	Value any `mapstructure:"value" json:"value,omitempty"`
	// Key registers the service under a key when set.
	Key string `mapstructure:"key" json:"key,omitempty"`
}

// ValueJSON returns Value as JSON text, or nil when there is no value.
func (s ServiceSettings) ValueJSON() ([]byte, error) {
	switch v := s.Value.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []byte(v), nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case json.RawMessage:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// Plan is the wiring strategy chosen for a settings record.
type Plan interface {
	Strategy() string
	plan()
}

// FactoryPlan delegates construction to an implementation factory found
// at ProviderPath.
type FactoryPlan struct {
	ProviderPath string
}

// ValuePlan registers a value decoded from JSON into the implementation
// type found at ModulePath.
type ValuePlan struct {
	ModulePath         string
	ImplementationName string
	Value              []byte
}

// TypePlan registers the implementation type found at ModulePath as a
// container-built singleton.
type TypePlan struct {
	ModulePath         string
	ImplementationName string
}

// Strategy names.
const (
	StrategyFactory = "factory"
	StrategyValue   = "value"
	StrategyType    = "type"
)

func (FactoryPlan) Strategy() string { return StrategyFactory }
func (ValuePlan) Strategy() string   { return StrategyValue }
func (TypePlan) Strategy() string    { return StrategyType }

func (FactoryPlan) plan() {}
func (ValuePlan) plan()   {}
func (TypePlan) plan()    {}

// ParsePlan decides the strategy for s. A provider path wins; otherwise a
// value together with a module path selects value materialization; any
// other record is wired by type.
func ParsePlan(s ServiceSettings) (Plan, error) {
	if s.ProviderPath != "" {
		return FactoryPlan{ProviderPath: s.ProviderPath}, nil
	}

	raw, err := s.ValueJSON()
	if err != nil {
		return nil, errors.InvalidSettings(s.ServiceTypeName, fmt.Sprintf("value is not encodable as JSON: %v", err)).WithCause(err)
	}
	if raw != nil && s.ModulePath != "" {
		return ValuePlan{
			ModulePath:         s.ModulePath,
			ImplementationName: s.ImplementationTypeName,
			Value:              raw,
		}, nil
	}

	return TypePlan{ModulePath: s.ModulePath, ImplementationName: s.ImplementationTypeName}, nil
}

func isNullJSON(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
