package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Module errors
const (
	// ErrCodeModuleNotFound indicates a path that does not resolve to a loadable unit.
	ErrCodeModuleNotFound ErrorCode = "MODULE_NOT_FOUND"
	// ErrCodeModuleLoad indicates a unit that exists but could not be loaded.
	ErrCodeModuleLoad ErrorCode = "MODULE_LOAD_ERROR"
)

// Container errors
const (
	// ErrCodeNotRegistered indicates no registration exists for a contract and key.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	// ErrCodeActivation indicates a constructor could not be invoked.
	ErrCodeActivation ErrorCode = "ACTIVATION_FAILED"
	// ErrCodeFactoryNotRegistered indicates an implementation factory is missing
	// or does not implement the factory capability.
	ErrCodeFactoryNotRegistered ErrorCode = "FACTORY_NOT_REGISTERED"
)

// Validation errors
const (
	// ErrCodeInvalidSettings indicates a service settings record failed validation.
	ErrCodeInvalidSettings ErrorCode = "INVALID_SETTINGS"
	// ErrCodeInvalidInput indicates an argument is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// fatalCodes are the codes that must abort the wiring phase.
var fatalCodes = map[ErrorCode]bool{
	ErrCodeModuleNotFound:       true,
	ErrCodeModuleLoad:           true,
	ErrCodeFactoryNotRegistered: true,
	ErrCodeInvalidSettings:      true,
	ErrCodeActivation:           false,
	ErrCodeNotRegistered:        false,
}

// IsFatalCode returns true if an error with this code should fail startup.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
