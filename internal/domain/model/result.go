package model

import "time"

// CommandResult captures the raw outcome of a single cluster operation.
// Created fresh per operation and consumed immediately by the response
// formatter; never cached.
type CommandResult struct {
	ExitCode         int
	Stdout           []byte
	Stderr           []byte
	DurationExceeded bool
	Duration         time.Duration
}

// Status is the caller-facing outcome of an invocation.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// ErrorDetail is the structured error payload inside an error envelope.
// Message never contains credential material; see apierror.Redact.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ResponseEnvelope is the uniform success/error payload returned to the
// caller. Data holds the raw command output on ok, an ErrorDetail on error.
type ResponseEnvelope struct {
	Status Status `json:"status"`
	Data   any    `json:"data"`
}

// OK reports whether the envelope carries a success.
func (e ResponseEnvelope) OK() bool { return e.Status == StatusOK }
