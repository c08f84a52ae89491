package leave

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConfiguration  = errors.New("configuration error")
	ErrDependency     = errors.New("dependency failure")
	ErrNotFound       = errors.New("leave request not found")
	ErrAlreadyDecided = errors.New("leave request already decided")
	ErrDuplicateID    = errors.New("leave request id already exists")
	ErrUnsupported    = errors.New("operation not supported by the approval strategy")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports malformed or missing client input.
type ValidationError struct {
	Message string
	Fields  []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConfigurationError reports deployment settings the protocol cannot run without.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DependencyError wraps a failed call to the store, the mailer or the workflow engine.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DependencyError) Unwrap() error { return e.Err }

func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

func dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

// AuthorizationError reports a missing, malformed, forged or expired credential.
type AuthorizationError struct {
	Err error
}

func (e *AuthorizationError) Error() string {
	if e.Err == nil {
		return ErrUnauthorized.Error()
	}
	return ErrUnauthorized.Error() + ": " + e.Err.Error()
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

func unauthorized(err error) error {
	return &AuthorizationError{Err: err}
}
