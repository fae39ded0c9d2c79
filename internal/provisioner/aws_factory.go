package provisioner

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/haatos/mybucketapp/internal/stack"
)

type ClientFactory interface {
	Engine(ctx context.Context, env stack.Environment) (Engine, error)
}

type STSAPI interface {
	GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSClientFactory resolves credentials through the SDK's default chain.
type AWSClientFactory struct {
	// Overrides the service endpoints when set.
	Endpoint string
	MaxWait  time.Duration
}

func NewAWSClientFactory(endpoint string) *AWSClientFactory {
	return &AWSClientFactory{Endpoint: endpoint, MaxWait: DefaultMaxWait}
}

func (f *AWSClientFactory) Engine(ctx context.Context, env stack.Environment) (Engine, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(env.Region))
	if err != nil {
		return nil, err
	}

	stsClient := sts.NewFromConfig(cfg, func(o *sts.Options) {
		if f.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.Endpoint)
		}
	})
	if err := VerifyAccount(ctx, stsClient, env.Account); err != nil {
		return nil, err
	}

	client := cloudformation.NewFromConfig(cfg, func(o *cloudformation.Options) {
		if f.Endpoint != "" {
			o.BaseEndpoint = aws.String(f.Endpoint)
		}
	})
	return NewCloudFormationEngine(client, f.MaxWait), nil
}

// VerifyAccount fails unless the caller identity belongs to account.
func VerifyAccount(ctx context.Context, api STSAPI, account string) error {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return engineError("", "get caller identity", err)
	}
	if actual := aws.ToString(out.Account); actual != account {
		return &AccountMismatchError{Expected: account, Actual: actual}
	}
	return nil
}
