package brain

import (
	"errors"
	"fmt"
)

// ModerationError is the single error kind returned by the moderation gate,
// whatever failed underneath.
type ModerationError struct {
	Err error
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("moderation failed: %v", e.Err)
}

func (e *ModerationError) Unwrap() error {
	return e.Err
}

// CompletionError wraps a failed language-model call. Op names the caller
// ("classify", "summarize").
type CompletionError struct {
	Op  string
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: completion failed: %v", e.Op, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// ValidationKind identifies which stage of response validation failed.
type ValidationKind int

const (
	// ValidationMalformed: the response is not a JSON object.
	ValidationMalformed ValidationKind = iota + 1
	// ValidationSchema: a required key is missing.
	ValidationSchema
	// ValidationType: a key holds a value of the wrong type.
	ValidationType
)

func (k ValidationKind) String() string {
	switch k {
	case ValidationMalformed:
		return "malformed_response"
	case ValidationSchema:
		return "schema_violation"
	case ValidationType:
		return "type_violation"
	}
	return "unknown"
}

var (
	ErrMalformedResponse = errors.New("response is not a valid JSON object")
	ErrSchemaViolation   = errors.New("response is missing a required key")
	ErrTypeViolation     = errors.New("response value has the wrong type")
)

// ValidationError reports untrusted model output that failed validation.
// errors.Is matches the sentinel for its Kind.
type ValidationError struct {
	Kind   ValidationKind
	Field  string // offending key for schema and type violations
	Detail string
	Raw    string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ValidationError) Is(target error) bool {
	switch e.Kind {
	case ValidationMalformed:
		return target == ErrMalformedResponse
	case ValidationSchema:
		return target == ErrSchemaViolation
	case ValidationType:
		return target == ErrTypeViolation
	}
	return false
}
