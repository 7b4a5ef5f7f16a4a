// Package kubernetes provides the invocation-scoped cluster access layer:
// an in-memory connection context assembled from the static endpoint/CA and
// a freshly resolved bearer token, and a commander executing the bounded set
// of cluster operations against it. No kubeconfig file is ever written.
package kubernetes

import (
	"context"
	"encoding/base64"
	"encoding/pem"
	"net/url"
	"time"

	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/pkg/apierror"
)

// BuilderConfig carries the static connection parameters loaded at process
// start plus execution settings for the commanders it produces.
type BuilderConfig struct {
	ClusterName      string
	Info             model.ClusterInfo
	Timeout          time.Duration
	FieldManager     string
	DefaultNamespace string
}

// AccessBuilder implements outbound.ClusterAccessBuilder. The endpoint and
// CA material are validated once at construction; only the token is resolved
// per invocation.
type AccessBuilder struct {
	cfg    BuilderConfig
	tokens outbound.TokenSource
	ca     []byte
}

var _ outbound.ClusterAccessBuilder = (*AccessBuilder)(nil)

// NewAccessBuilder validates the static cluster parameters and returns a
// builder. Malformed endpoint or CA data is a ConfigurationError: fatal and
// not retryable without operator intervention.
func NewAccessBuilder(cfg BuilderConfig, tokens outbound.TokenSource) (*AccessBuilder, error) {
	u, err := url.Parse(cfg.Info.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, apierror.Configuration("cluster endpoint %q is not a valid https URL", cfg.Info.Endpoint)
	}

	ca, err := base64.StdEncoding.DecodeString(cfg.Info.CAData)
	if err != nil {
		return nil, apierror.Configuration("cluster CA data is not valid base64: %v", err)
	}
	block, _ := pem.Decode(ca)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, apierror.Configuration("cluster CA data does not contain a PEM certificate")
	}

	if cfg.Timeout <= 0 {
		return nil, apierror.Configuration("executor timeout must be positive, got %s", cfg.Timeout)
	}

	return &AccessBuilder{cfg: cfg, tokens: tokens, ca: ca}, nil
}

// Build resolves a fresh token and assembles the cluster clients for one
// invocation. The rest.Config lives only in memory and is dropped with the
// returned access; it is never reused even while the token is still valid.
func (b *AccessBuilder) Build(ctx context.Context) (outbound.ClusterAccess, error) {
	token, err := b.tokens.Token(ctx, b.cfg.ClusterName)
	if err != nil {
		return outbound.ClusterAccess{}, err
	}

	restCfg := &rest.Config{
		Host:            b.cfg.Info.Endpoint,
		BearerToken:     token.Value,
		TLSClientConfig: rest.TLSClientConfig{CAData: b.ca},
	}

	clientset, err := k8s.NewForConfig(restCfg)
	if err != nil {
		return outbound.ClusterAccess{}, apierror.Configuration("building cluster clientset: %s",
			apierror.Redact(err.Error(), token.Value))
	}
	dyn, err := dynamic.NewForConfig(restCfg)
	if err != nil {
		return outbound.ClusterAccess{}, apierror.Configuration("building dynamic client: %s",
			apierror.Redact(err.Error(), token.Value))
	}
	disco, err := discovery.NewDiscoveryClientForConfig(restCfg)
	if err != nil {
		return outbound.ClusterAccess{}, apierror.Configuration("building discovery client: %s",
			apierror.Redact(err.Error(), token.Value))
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(disco))

	commander := NewCommander(clientset, dyn, mapper, CommanderConfig{
		Timeout:          b.cfg.Timeout,
		FieldManager:     b.cfg.FieldManager,
		DefaultNamespace: b.cfg.DefaultNamespace,
	})

	return outbound.ClusterAccess{Commander: commander, Token: token}, nil
}
