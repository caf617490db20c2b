package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrValidationFailed indicates an invalid declaration. The entity is abandoned.
	ErrValidationFailed = errors.New("schemagen: validation failed")
	// ErrResolutionFailed indicates an unknown target, a reference cycle or an unmapped type.
	ErrResolutionFailed = errors.New("schemagen: resolution failed")
	// ErrInconsistentSchema indicates a conflict that invalidates a whole database group.
	ErrInconsistentSchema = errors.New("schemagen: inconsistent schema")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("schemagen: missing configuration")
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("schemagen: code generation failed")

	// errDeferred marks a reference whose target is not declared yet.
	errDeferred = errors.New("schemagen: target not declared yet")
)

// ValidationError represents an invalid declaration.
type ValidationError struct {
	Entity  string
	Field   string
	Value   any
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("schemagen: validation error")
	if e.Entity != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewValidationError creates a new ValidationError.
func NewValidationError(entity, field string, value any, message string) *ValidationError {
	return &ValidationError{
		Entity:  entity,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ResolutionError represents a reference or type that could not be resolved.
type ResolutionError struct {
	Entity  string
	Field   string
	Target  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("schemagen: resolution error")
	if e.Entity != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " (-> %s)", e.Target)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for ResolutionError.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolutionFailed
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(entity, field, target, message string, cause error) *ResolutionError {
	return &ResolutionError{
		Entity:  entity,
		Field:   field,
		Target:  target,
		Message: message,
		Cause:   cause,
	}
}

// ConsistencyError represents a conflict between entities of one database group.
type ConsistencyError struct {
	Database string
	Table    string
	Entities []string
	Message  string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	var b strings.Builder
	b.WriteString("schemagen: consistency error")
	if e.Database != "" {
		b.WriteString(" in database ")
		b.WriteString(e.Database)
	}
	if e.Table != "" {
		b.WriteString(" table ")
		b.WriteString(e.Table)
	}
	if len(e.Entities) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Entities, ", "))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ConsistencyError.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistentSchema
}

// NewConsistencyError creates a new ConsistencyError.
func NewConsistencyError(database, table string, entities []string, message string) *ConsistencyError {
	return &ConsistencyError{
		Database: database,
		Table:    table,
		Entities: entities,
		Message:  message,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("schemagen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("schemagen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "adapter", "registry", "schema"
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("schemagen: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsValidationError reports whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// IsResolutionError reports whether the error is a ResolutionError.
func IsResolutionError(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr)
}

// IsConsistencyError reports whether the error is a ConsistencyError.
func IsConsistencyError(err error) bool {
	var conErr *ConsistencyError
	return errors.As(err, &conErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
