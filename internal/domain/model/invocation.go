package model

import "time"

// InvocationRecord is the audit-trail row written after each invocation
// reaches a terminal state. It carries request metadata and the outcome,
// never command output or credential material.
type InvocationRecord struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Namespace  string    `json:"namespace"`
	Deployment string    `json:"deployment"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewInvocationRecord builds a record for a finished invocation.
func NewInvocationRecord(req ActionRequest, env ResponseEnvelope, duration time.Duration) InvocationRecord {
	rec := InvocationRecord{
		ID:         generateID(),
		Action:     string(req.Action),
		Namespace:  req.Namespace,
		Deployment: req.Deployment,
		Status:     string(env.Status),
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if detail, ok := env.Data.(ErrorDetail); ok {
		rec.ErrorKind = detail.Kind
	}
	return rec
}
