package domain

import (
	"errors"
	"fmt"
)

// NotFoundError reports a lookup against an unknown instance, task or
// memory entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// AlreadyExistsError reports a duplicate registration or entity creation.
type AlreadyExistsError struct {
	Kind string
	ID   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.ID)
}

// ValidationError reports a malformed or missing request parameter. The
// dispatcher raises it before any store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// UnknownRequestError reports an unrecognized request method name.
type UnknownRequestError struct {
	Method string
}

func (e *UnknownRequestError) Error() string {
	return fmt.Sprintf("unknown request: %s", e.Method)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// NewAlreadyExists builds an AlreadyExistsError.
func NewAlreadyExists(kind, id string) error {
	return &AlreadyExistsError{Kind: kind, ID: id}
}

// NewValidation builds a ValidationError.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAlreadyExists reports whether err is (or wraps) an AlreadyExistsError.
func IsAlreadyExists(err error) bool {
	var ae *AlreadyExistsError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnknownRequest reports whether err is (or wraps) an UnknownRequestError.
func IsUnknownRequest(err error) bool {
	var ur *UnknownRequestError
	return errors.As(err, &ur)
}
