package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidState is returned when an operation is invoked in a lifecycle
// state that forbids it, e.g. cancelling an ended subscription. This is a
// usage error, reported distinctly from user-facing failures.
var ErrInvalidState = errors.New("operation not allowed in current state")

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError reports field-level problems with user input. The caller
// stays on the form with the entered data intact; only flagged fields need
// correction.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CapabilityError is a card tokenization or confirmation failure reported
// by the payment gateway. The gateway message is surfaced verbatim and the
// operation is never retried.
type CapabilityError struct {
	Message string
}

func (e *CapabilityError) Error() string {
	return e.Message
}

// ApiError wraps a storage or transport failure. The underlying cause is
// logged; callers get a generic retry prompt since no side effect can be
// assumed.
type ApiError struct {
	Op  string
	Err error
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ApiError) Unwrap() error {
	return e.Err
}
