package outbound

import (
	"context"

	"github.com/majiny/eksops/internal/domain/model"
)

// ClusterCommander executes exactly one cluster operation per call against an
// already-authenticated access context. Implementations enforce the
// wall-clock timeout and surface failures through pkg/apierror kinds; they
// capture raw output without interpreting it.
type ClusterCommander interface {
	// Get lists the workload and service resources in a namespace. Read-only.
	Get(ctx context.Context, namespace string) (model.CommandResult, error)

	// Restart triggers a rolling restart of a deployment by mutating its
	// restart annotation. Idempotent at the request level but not at the
	// cluster level: two calls mean two rollovers. Never delete+recreate.
	Restart(ctx context.Context, namespace, deployment string) (model.CommandResult, error)

	// Apply submits a single declarative manifest via server-side apply.
	// Applying the same manifest twice produces no additional change.
	Apply(ctx context.Context, namespace, manifest string) (model.CommandResult, error)

	// Status reports the rollout state of a deployment. Read-only.
	Status(ctx context.Context, namespace, deployment string) (model.CommandResult, error)

	// Describe returns a detailed description of one deployment. Read-only.
	Describe(ctx context.Context, namespace, deployment string) (model.CommandResult, error)
}

// ClusterAccess bundles a ready-to-use commander with the token backing it.
// The token value is carried only so the formatter can redact it from error
// text; nothing else may read it.
type ClusterAccess struct {
	Commander ClusterCommander
	Token     model.Token
}

// ClusterAccessBuilder assembles a fresh invocation-scoped access context:
// resolve a token from the ambient identity, combine it with the static
// endpoint and CA material, return a commander bound to that context. Access
// is never reused across invocations, even when the token is still valid.
type ClusterAccessBuilder interface {
	Build(ctx context.Context) (ClusterAccess, error)
}
