package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/pkg/apierror"
)

// DescribeClusterAPI is the slice of the EKS client the resolver needs.
type DescribeClusterAPI interface {
	DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
}

// ClusterResolver implements outbound.ClusterInfoResolver via the EKS
// DescribeCluster API. The calling identity needs eks:DescribeCluster on the
// target cluster; a denial surfaces as AuthResolutionError.
type ClusterResolver struct {
	client DescribeClusterAPI
}

var _ outbound.ClusterInfoResolver = (*ClusterResolver)(nil)

func NewClusterResolver(cfg awssdk.Config) *ClusterResolver {
	return &ClusterResolver{client: eks.NewFromConfig(cfg)}
}

// NewClusterResolverFromAPI wires an explicit API client, used by tests.
func NewClusterResolverFromAPI(client DescribeClusterAPI) *ClusterResolver {
	return &ClusterResolver{client: client}
}

// ResolveCluster returns the API endpoint and base64 CA data of one cluster.
func (r *ClusterResolver) ResolveCluster(ctx context.Context, name string) (model.ClusterInfo, error) {
	out, err := r.client.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: awssdk.String(name)})
	if err != nil {
		return model.ClusterInfo{}, apierror.AuthResolution(err, "describing cluster %q", name)
	}

	cluster := out.Cluster
	if cluster == nil || cluster.Endpoint == nil ||
		cluster.CertificateAuthority == nil || cluster.CertificateAuthority.Data == nil {
		return model.ClusterInfo{}, apierror.New(apierror.KindAuthResolution,
			"describe returned incomplete connection data for cluster %q", name)
	}

	return model.ClusterInfo{
		Endpoint: awssdk.ToString(cluster.Endpoint),
		CAData:   awssdk.ToString(cluster.CertificateAuthority.Data),
	}, nil
}
