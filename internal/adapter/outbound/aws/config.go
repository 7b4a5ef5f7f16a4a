// Package aws resolves cluster connection parameters and short-lived bearer
// tokens from the ambient AWS execution identity. No secrets are stored or
// written to disk; the process relies entirely on the identity the runtime
// already vouches for (Lambda execution role, IRSA, environment).
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/majiny/eksops/pkg/apierror"
)

// NewConfig loads the default AWS configuration for the given region using
// the ambient credential chain.
func NewConfig(ctx context.Context, region string) (awssdk.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return awssdk.Config{}, apierror.AuthResolution(err, "loading ambient AWS credentials")
	}
	return cfg, nil
}
