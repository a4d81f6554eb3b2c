package ambientdb

import (
	"errors"
	"fmt"
)

// ErrRegistryFrozen is returned when a provider is registered after the registry was booted or frozen.
var ErrRegistryFrozen = errors.New("registry is frozen: registration after boot is not supported")

// ConformanceError reports that an implementation does not satisfy a capability.
// Member names the first mismatched method of the capability.
type ConformanceError struct {
	Capability     string
	Implementation string
	Member         string
	Want           string
	Got            string
}

func (e *ConformanceError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("%s does not implement method %s of %s: missing, want %s",
			e.Implementation, e.Member, e.Capability, e.Want)
	}
	return fmt.Sprintf("%s does not implement method %s of %s correctly: want %s, got %s",
		e.Implementation, e.Member, e.Capability, e.Want, e.Got)
}

// CircularDependencyError represents a circular dependency detection error.
type CircularDependencyError struct {
	Type string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected for type: %s", e.Type)
}

// NotRegisteredError represents a resolution of a capability nobody registered.
type NotRegisteredError struct {
	Type string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no provider registered for type: %s", e.Type)
}

// NilProviderError represents an attempt to register a nil constructor.
type NilProviderError struct {
	Type string
}

func (e *NilProviderError) Error() string {
	return fmt.Sprintf("nil constructor provided for type: %s", e.Type)
}

// InvalidModeError represents an unknown construction mode.
type InvalidModeError struct {
	Type string
	Mode Mode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q for type %s", e.Mode, e.Type)
}

// InitializationError represents a constructor failure.
type InitializationError struct {
	Type string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for type %s: %v", e.Type, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// TypeMismatchError represents a type assertion failure.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// ShutdownError represents a singleton close failure.
type ShutdownError struct {
	Type string
	Err  error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for type %s: %v", e.Type, e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}
