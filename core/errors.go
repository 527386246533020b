package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a missing resource. Msg overrides the default "<resource> not found".
type NotFoundError struct {
	Resource string
	Msg      string
}

func NewNotFoundError(resource string, msg ...string) *NotFoundError {
	err := &NotFoundError{Resource: resource}
	if len(msg) > 0 {
		err.Msg = msg[0]
	}
	return err
}

func (err NotFoundError) Error() string {
	if err.Msg != "" {
		return err.Msg
	}
	return err.Resource + " not found"
}

// ConflictError reports a write that would break a uniqueness rule.
type ConflictError struct {
	msg string
}

func NewConflictError(msg string) *ConflictError {
	return &ConflictError{msg: msg}
}

func (err ConflictError) Error() string {
	return err.msg
}

// PermissionError reports an authenticated caller acting outside its rights.
type PermissionError struct {
	msg string
}

func NewPermissionError(msg string) *PermissionError {
	return &PermissionError{msg: msg}
}

func (err PermissionError) Error() string {
	return err.msg
}

// IsNotFound reports whether the cause of err is a *NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
