package outbound

import (
	"context"
	"time"
)

// ActionOutcome summarizes a finished invocation for notification purposes.
// Output is raw command text, already safe to share; credential material
// never reaches this struct.
type ActionOutcome struct {
	Action     string
	Namespace  string
	Deployment string
	Status     string
	ErrorKind  string
	Output     string
	Duration   time.Duration
}

// Notifier announces the outcome of mutating actions to operators.
// Best-effort: a notification failure never alters the invocation result.
type Notifier interface {
	NotifyResult(ctx context.Context, outcome ActionOutcome) error
}
