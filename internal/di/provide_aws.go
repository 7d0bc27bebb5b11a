package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"

	"github.com/lifio/readlif/internal/pipeline"
)

// ProvideContext provides the root context, carrying the logger so deeper
// code can retrieve it with zerolog.Ctx.
func ProvideContext(logger zerolog.Logger) context.Context {
	return logger.WithContext(context.Background())
}

func ProvideAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

// ProvideS3Client provides the S3 client backing the s3 registry provider.
// When the deploy descriptor declares an endpoint (MinIO and other
// S3-compatible stores), the client is pointed at it with path-style
// addressing.
func ProvideS3Client(config aws.Config, p *pipeline.Pipeline) *s3.Client {
	deploy, err := p.Deploy()
	if err != nil || deploy.Endpoint == "" {
		return s3.NewFromConfig(config)
	}

	return s3.NewFromConfig(config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(deploy.Endpoint)
		o.UsePathStyle = true
	})
}

func ProvideSSMClient(config aws.Config) *ssm.Client {
	return ssm.NewFromConfig(config)
}

func ProvideSecretsManagerClient(config aws.Config) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(config)
}
