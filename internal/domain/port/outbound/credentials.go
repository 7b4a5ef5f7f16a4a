package outbound

import (
	"context"

	"github.com/majiny/eksops/internal/domain/model"
)

// ClusterInfoResolver looks up the connection parameters of one named
// cluster through the cloud cluster-describe exchange. Called once at
// process start unless the endpoint and CA are pinned in configuration.
type ClusterInfoResolver interface {
	ResolveCluster(ctx context.Context, name string) (model.ClusterInfo, error)
}

// TokenSource exchanges the ambient execution identity for a short-lived
// bearer token scoped to one named cluster. No secrets are stored; the only
// network call is the identity-to-token exchange itself.
type TokenSource interface {
	Token(ctx context.Context, clusterName string) (model.Token, error)
}
