package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/lifio/readlif/internal/errors"
)

// ParameterStoreAPI is the slice of the SSM client the source needs.
type ParameterStoreAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ParameterStoreSource resolves tokens from AWS Systems Manager
// Parameter Store, decrypting SecureString parameters.
type ParameterStoreSource struct {
	client ParameterStoreAPI
}

func NewParameterStoreSource(client ParameterStoreAPI) *ParameterStoreSource {
	return &ParameterStoreSource{client: client}
}

func (s *ParameterStoreSource) Resolve(ctx context.Context, name string) (string, error) {
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("%w: parameter %s not found", errors.ErrTokenMissing, name)
	}

	return *result.Parameter.Value, nil
}
