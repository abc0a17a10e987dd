package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal indicates the wiring phase cannot continue.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic fatal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// --- Common Error Constructors ---

// ModuleNotFound creates an error for a path with no loadable unit.
func ModuleNotFound(path string) *AppError {
	return &AppError{
		Code: ErrCodeModuleNotFound, Message: fmt.Sprintf("no loadable module at %s", path),
		Fatal: true, Details: map[string]any{"path": path},
	}
}

// ModuleLoad creates an error for a unit that failed to load.
func ModuleLoad(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeModuleLoad, Message: fmt.Sprintf("failed to load module %s", path),
		Fatal: true, Details: map[string]any{"path": path}, Cause: cause,
	}
}

// NotRegistered creates an error for a contract with no registration.
func NotRegistered(contract string, key any) *AppError {
	details := map[string]any{"contract": contract}
	if key != nil {
		details["key"] = key
		return &AppError{
			Code: ErrCodeNotRegistered, Message: fmt.Sprintf("%s is not registered for key %v", contract, key),
			Details: details,
		}
	}
	return &AppError{
		Code: ErrCodeNotRegistered, Message: fmt.Sprintf("%s is not registered", contract),
		Details: details,
	}
}

// Activation creates an error for a constructor that could not be invoked.
func Activation(target, reason string) *AppError {
	return &AppError{
		Code: ErrCodeActivation, Message: fmt.Sprintf("cannot activate %s: %s", target, reason),
		Details: map[string]any{"target": target},
	}
}

// FactoryNotRegistered creates an error for a missing implementation factory.
func FactoryNotRegistered(factory, reason string) *AppError {
	return &AppError{
		Code: ErrCodeFactoryNotRegistered, Message: fmt.Sprintf("service implementation factory %s %s", factory, reason),
		Fatal: true, Details: map[string]any{"factory": factory},
	}
}

// InvalidSettings creates an error for a settings record that failed validation.
func InvalidSettings(service, reason string) *AppError {
	details := make(map[string]any)
	if service != "" {
		details["service"] = service
	}
	return &AppError{
		Code: ErrCodeInvalidSettings, Message: fmt.Sprintf("invalid settings: %s", reason),
		Fatal: true, Details: details,
	}
}

// InvalidInput creates an error for an invalid argument.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an error for struct validation failures.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidSettings, Message: message, Fatal: true,
	}
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Cause: cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
