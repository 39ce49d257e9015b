package ehrschema

import (
	"fmt"
)

// ErrorType represents the category of engine error.
type ErrorType string

const (
	ErrorTypeShape       ErrorType = "schema_shape"
	ErrorTypeUnknownType ErrorType = "unknown_type"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeDuplicateID ErrorType = "duplicate_id"
	ErrorTypeInternal    ErrorType = "internal"
)

// Error codes surfaced by the engine.
const (
	ErrCodeSchemaShape     = "SCHEMA_SHAPE_INVALID"
	ErrCodeUnknownType     = "UNKNOWN_FIELD_TYPE"
	ErrCodeTableNotFound   = "TABLE_NOT_FOUND"
	ErrCodeDuplicateID     = "DUPLICATE_TABLE_ID"
	ErrCodeDuplicateName   = "DUPLICATE_TABLE_NAME"
	ErrCodeDocumentInvalid = "DOCUMENT_INVALID"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// SchemaError is the unified error type for compile, registration and lookup
// failures. Validation-time problems are never SchemaErrors; they are returned
// as (bool, []string) results so callers can batch them.
type SchemaError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Table   string         `json:"table,omitempty"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *SchemaError) Error() string {
	switch {
	case e.Table != "" && e.Field != "":
		return fmt.Sprintf("[%s:%s] table '%s' field '%s': %s", e.Type, e.Code, e.Table, e.Field, e.Message)
	case e.Table != "":
		return fmt.Sprintf("[%s:%s] table '%s': %s", e.Type, e.Code, e.Table, e.Message)
	case e.Field != "":
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	default:
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying error.
func (e *SchemaError) WithCause(cause error) *SchemaError {
	e.Cause = cause
	return e
}

// WithTable attaches table context.
func (e *SchemaError) WithTable(table string) *SchemaError {
	e.Table = table
	return e
}

// WithField attaches field context.
func (e *SchemaError) WithField(field string) *SchemaError {
	e.Field = field
	return e
}

// WithDetail attaches a single detail entry.
func (e *SchemaError) WithDetail(key string, value any) *SchemaError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewSchemaShapeError reports a malformed meta or form schema.
func NewSchemaShapeError(message string) *SchemaError {
	return &SchemaError{
		Type:    ErrorTypeShape,
		Code:    ErrCodeSchemaShape,
		Message: message,
	}
}

// NewUnknownTypeError reports a raw type tag absent from the allowed set.
func NewUnknownTypeError(rawType, field string) *SchemaError {
	return &SchemaError{
		Type:    ErrorTypeUnknownType,
		Code:    ErrCodeUnknownType,
		Message: fmt.Sprintf("raw type '%s' is not allowed", rawType),
		Field:   field,
		Details: map[string]any{"raw_type": rawType},
	}
}

// NewTableNotFoundError reports an unknown table id or name on lookup.
func NewTableNotFoundError(ref string) *SchemaError {
	return &SchemaError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeTableNotFound,
		Message: fmt.Sprintf("table '%s' is not registered", ref),
	}
}

// NewDuplicateIDError reports an explicit table id collision on register.
func NewDuplicateIDError(id int16) *SchemaError {
	return &SchemaError{
		Type:    ErrorTypeDuplicateID,
		Code:    ErrCodeDuplicateID,
		Message: fmt.Sprintf("table id %d is already registered", id),
		Details: map[string]any{"id": id},
	}
}

// NewDuplicateNameError reports a table name collision on register.
func NewDuplicateNameError(name string) *SchemaError {
	return &SchemaError{
		Type:    ErrorTypeDuplicateID,
		Code:    ErrCodeDuplicateName,
		Message: fmt.Sprintf("table name '%s' is already registered", name),
		Table:   name,
	}
}

// NewInternalError reports an unexpected engine failure.
func NewInternalError(message string, cause error) *SchemaError {
	return &SchemaError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
	}
}

// IsSchemaShapeError checks whether err is a schema shape error.
func IsSchemaShapeError(err error) bool {
	return hasErrorType(err, ErrorTypeShape)
}

// IsUnknownTypeError checks whether err is an unknown type error.
func IsUnknownTypeError(err error) bool {
	return hasErrorType(err, ErrorTypeUnknownType)
}

// IsNotFoundError checks whether err is a lookup failure.
func IsNotFoundError(err error) bool {
	return hasErrorType(err, ErrorTypeNotFound)
}

// IsDuplicateIDError checks whether err is an id or name collision.
func IsDuplicateIDError(err error) bool {
	return hasErrorType(err, ErrorTypeDuplicateID)
}

func hasErrorType(err error, t ErrorType) bool {
	if se, ok := err.(*SchemaError); ok {
		return se.Type == t
	}
	return false
}
