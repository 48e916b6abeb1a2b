// Package apierr defines the error taxonomy shared by the model, pipeline,
// executor and session packages. Callers distinguish "no response"
// (TransportError) from "wrong response" (AssertionError) with errors.As.
package apierr

import (
	"fmt"
)

// ConfigError reports a misconfiguration detected before any request is
// attempted, such as switching to an unregistered environment.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

func NewConfigError(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// BuildError reports a failure while assembling a request: an unresolved
// path placeholder, an unsupported body variant, a malformed template.
type BuildError struct {
	Field string
	Msg   string
	Cause error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("build %s: %s: %v", e.Field, e.Msg, e.Cause)
	}
	return fmt.Sprintf("build %s: %s", e.Field, e.Msg)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

func NewBuildError(field, msg string) error {
	return &BuildError{Field: field, Msg: msg}
}

func NewBuildErrorCause(field, msg string, cause error) error {
	return &BuildError{Field: field, Msg: msg, Cause: cause}
}

// TransportError wraps connection, timeout and DNS failures from the
// transport client. No response was captured when it is returned.
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func NewTransportError(url string, cause error) error {
	return &TransportError{URL: url, Cause: cause}
}

// AssertionError reports an assertion operator that evaluated to false.
type AssertionError struct {
	Operator string
	Actual   any
	Expected any
	Msg      string
}

func (e *AssertionError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("assertion failed: %v %s %v", e.Actual, e.Operator, e.Expected)
}

// AssertionTypeError reports operands an ordered operator cannot compare.
// It is deliberately distinct from AssertionError: a type mismatch is a test
// authoring bug, not a failed expectation.
type AssertionTypeError struct {
	Operator string
	Actual   any
	Expected any
}

func (e *AssertionTypeError) Error() string {
	return fmt.Sprintf("assertion %s: cannot compare %T with %T", e.Operator, e.Actual, e.Expected)
}

// DataAccessError wraps a failure from the SQL collaborator.
type DataAccessError struct {
	Stmt  string
	Cause error
}

func (e *DataAccessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data access: %s: %v", e.Stmt, e.Cause)
	}
	return fmt.Sprintf("data access: %s", e.Stmt)
}

func (e *DataAccessError) Unwrap() error {
	return e.Cause
}

func NewDataAccessError(stmt string, cause error) error {
	return &DataAccessError{Stmt: stmt, Cause: cause}
}
