package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/lifio/readlif/internal/errors"
)

// SecretsManagerAPI is the slice of the Secrets Manager client the
// source needs.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource resolves tokens from AWS Secrets Manager.
type SecretsManagerSource struct {
	client SecretsManagerAPI
}

func NewSecretsManagerSource(client SecretsManagerAPI) *SecretsManagerSource {
	return &SecretsManagerSource{client: client}
}

func (s *SecretsManagerSource) Resolve(ctx context.Context, name string) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	if result.SecretString == nil || *result.SecretString == "" {
		return "", fmt.Errorf("%w: secret %s has no string value", errors.ErrTokenMissing, name)
	}

	return *result.SecretString, nil
}
