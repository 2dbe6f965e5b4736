package docmap

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("docmap: object not found")

	// ErrConfiguration is returned when metadata is inconsistent with the
	// values being stored or fetched.
	ErrConfiguration = errors.New("docmap: invalid configuration")

	// ErrNotCascaded is returned when a related object is not reachable by
	// persistence because the relation does not cascade.
	ErrNotCascaded = errors.New("docmap: related object not cascaded")

	// ErrUnsupported is returned for mappings the document layout cannot express.
	ErrUnsupported = errors.New("docmap: unsupported mapping")
)

// NotFoundError represents an error when an object is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("docmap: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("docmap: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the type label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConfigurationError reports metadata that does not match the object graph,
// for example a value stored in an embedded field whose runtime type is unknown.
type ConfigurationError struct {
	Type  string // Type being processed
	Field string // Optional: field being processed
	Msg   string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("docmap: %s.%s: %s", e.Type, e.Field, e.Msg)
	}
	return fmt.Sprintf("docmap: %s: %s", e.Type, e.Msg)
}

// Is reports whether the target error matches ConfigurationError.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(typ, field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Type: typ, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// NotCascadedError is returned when storing a relation whose value is
// neither persistent nor detached while the relation forbids cascading
// the current operation (insert or update).
type NotCascadedError struct {
	Field string // Qualified field name, e.g. "Order.customer"
	Op    string // "insert" or "update"
	Value any    // The unreachable value
}

// Error returns the error string.
func (e *NotCascadedError) Error() string {
	return fmt.Sprintf("docmap: field %s does not cascade %s and its value %v is not persistent", e.Field, e.Op, e.Value)
}

// Is reports whether the target error matches NotCascadedError.
func (e *NotCascadedError) Is(err error) bool {
	return err == ErrNotCascaded
}

// NewNotCascadedError returns a new NotCascadedError.
func NewNotCascadedError(field, op string, value any) *NotCascadedError {
	return &NotCascadedError{Field: field, Op: op, Value: value}
}

// IsNotCascaded returns true if the error is a NotCascadedError.
func IsNotCascaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotCascadedError
	return errors.As(err, &e)
}

// UnsupportedError reports a mapping that is valid metadata but cannot be
// stored, such as serialized elements of an embedded container.
type UnsupportedError struct {
	Field   string
	Feature string
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("docmap: field %s: %s is not supported", e.Field, e.Feature)
}

// Is reports whether the target error matches UnsupportedError.
func (e *UnsupportedError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewUnsupportedError returns a new UnsupportedError.
func NewUnsupportedError(field, feature string) *UnsupportedError {
	return &UnsupportedError{Field: field, Feature: feature}
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "docmap: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("docmap: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// PersistError wraps a failure to store an object with its type and operation.
type PersistError struct {
	Type string // Type being persisted
	Op   string // "insert" or "update"
	Err  error  // Underlying error
}

// Error returns the error string.
func (e *PersistError) Error() string {
	return fmt.Sprintf("docmap: %s %s: %v", e.Op, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// NewPersistError returns a new PersistError.
func NewPersistError(typ, op string, err error) *PersistError {
	return &PersistError{Type: typ, Op: op, Err: err}
}

// IsPersistError returns true if the error is a PersistError.
func IsPersistError(err error) bool {
	if err == nil {
		return false
	}
	var e *PersistError
	return errors.As(err, &e)
}
