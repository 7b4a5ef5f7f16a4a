package apierror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the controller can report. Exactly one kind
// ends up in each error envelope.
type Kind string

const (
	KindValidation       Kind = "ValidationError"
	KindConfiguration    Kind = "ConfigurationError"
	KindAuthResolution   Kind = "AuthResolutionError"
	KindExecutionTimeout Kind = "ExecutionTimeout"
	KindExecution        Kind = "ExecutionError"
)

type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error. The cause stays
// available to errors.Is/As chains; the kind of the outermost Error wins.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func Configuration(format string, args ...any) *Error {
	return New(KindConfiguration, format, args...)
}

func AuthResolution(err error, format string, args ...any) *Error {
	return Wrap(KindAuthResolution, err, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return New(KindExecutionTimeout, format, args...)
}

func Execution(err error, format string, args ...any) *Error {
	return Wrap(KindExecution, err, format, args...)
}

// KindOf returns the kind carried by err. Errors that never went through this
// package are treated as execution failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExecution
}

// Redact replaces every occurrence of the given secrets in msg. Applied to all
// outbound error text so a bearer token embedded in a transport error can
// never leave the process.
func Redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, s, "[redacted]")
	}
	return msg
}
