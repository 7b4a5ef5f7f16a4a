package aws

import (
	"context"
	"encoding/base64"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/majiny/eksops/internal/domain/model"
	"github.com/majiny/eksops/internal/domain/port/outbound"
	"github.com/majiny/eksops/pkg/apierror"
)

const (
	// clusterIDHeader binds the presigned identity request to exactly one
	// cluster name; the API server's authenticator verifies it.
	clusterIDHeader = "x-k8s-aws-id"

	tokenPrefix    = "k8s-aws-v1."
	presignExpires = "60"

	// tokenTTL is the conventional validity window the EKS authenticator
	// grants a presigned identity token, minus a safety margin.
	tokenTTL = 14 * time.Minute
)

// PresignAPI is the slice of the STS presigner the token source needs.
type PresignAPI interface {
	PresignGetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// STSTokenSource implements outbound.TokenSource by presigning an STS
// GetCallerIdentity request carrying the cluster-ID header and encoding the
// resulting URL in the aws-iam-authenticator bearer format. The exchange is
// the only network call; the token lives in memory only.
type STSTokenSource struct {
	presigner PresignAPI
	now       func() time.Time
}

var _ outbound.TokenSource = (*STSTokenSource)(nil)

func NewSTSTokenSource(cfg awssdk.Config) *STSTokenSource {
	return &STSTokenSource{
		presigner: sts.NewPresignClient(sts.NewFromConfig(cfg)),
		now:       time.Now,
	}
}

// NewSTSTokenSourceFromAPI wires an explicit presigner, used by tests.
func NewSTSTokenSourceFromAPI(presigner PresignAPI) *STSTokenSource {
	return &STSTokenSource{presigner: presigner, now: time.Now}
}

// Token returns a fresh bearer token for the named cluster with its expiry.
func (s *STSTokenSource) Token(ctx context.Context, clusterName string) (model.Token, error) {
	signed, err := s.presigner.PresignGetCallerIdentity(ctx, &sts.GetCallerIdentityInput{},
		func(po *sts.PresignOptions) {
			po.ClientOptions = append(po.ClientOptions, func(o *sts.Options) {
				o.APIOptions = append(o.APIOptions,
					smithyhttp.SetHeaderValue(clusterIDHeader, clusterName),
					smithyhttp.SetHeaderValue("X-Amz-Expires", presignExpires),
				)
			})
		})
	if err != nil {
		return model.Token{}, apierror.AuthResolution(err, "presigning identity token for cluster %q", clusterName)
	}

	return model.Token{
		Value:     tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(signed.URL)),
		ExpiresAt: s.now().Add(tokenTTL),
	}, nil
}
