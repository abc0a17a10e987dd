// Package validation checks wiring settings before they reach the registrar.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Field names in messages
// follow the mapstructure tags settings are decoded with.
//
// # Struct Tag Validation
//
//	type ServiceSettings struct {
//	    ModulePath   string `mapstructure:"module_path" validate:"required_without=ProviderPath"`
//	    ProviderPath string `mapstructure:"provider_path"`
//	}
//	err := validation.Validate(settings)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("service_type", name).Extension("extension", ext)
//	if appErr := v.Validate(); appErr != nil {
//	    return appErr
//	}
package validation
