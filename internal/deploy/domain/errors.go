package domain

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed or missing descriptor field.
type ConfigError struct {
	Field  string
	Reason string
}

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: field %q %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// FetchError reports an unresolvable repository reference, a transport
// failure, or a non-writable target directory.
type FetchError struct {
	Ref    string // revision reference being resolved, if known
	Path   string // filesystem path involved, if any
	Reason string
	Err    error
}

// NewFetchError creates a FetchError wrapping an underlying cause.
// Either ref or path may be empty.
func NewFetchError(ref, path, reason string, err error) *FetchError {
	return &FetchError{Ref: ref, Path: path, Reason: reason, Err: err}
}

func (e *FetchError) Error() string {
	msg := "fetch: " + e.Reason
	if e.Ref != "" {
		msg += fmt.Sprintf(" (ref %q)", e.Ref)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %q)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// EnvError reports a failure to materialize the env mapping, such as a
// value that cannot be serialized.
type EnvError struct {
	Key    string
	Reason string
}

// NewEnvError creates an EnvError for the given env key.
func NewEnvError(key, reason string) *EnvError {
	return &EnvError{Key: key, Reason: reason}
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("env: key %q %s", e.Key, e.Reason)
}

// IsEnvError reports whether err is (or wraps) an EnvError.
func IsEnvError(err error) bool {
	var ee *EnvError
	return errors.As(err, &ee)
}
