package di

import (
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/lifio/readlif/internal/secrets"
)

// ProvideTokenResolver wires every token scheme to its source. Deploy
// tokens stay references until the publisher redeems them.
func ProvideTokenResolver(sm *secretsmanager.Client, ps *ssm.Client) *secrets.Resolver {
	return secrets.NewResolver(map[string]secrets.Source{
		secrets.SchemeEnv:            secrets.EnvSource{},
		secrets.SchemeSecretsManager: secrets.NewSecretsManagerSource(sm),
		secrets.SchemeSSM:            secrets.NewParameterStoreSource(ps),
	})
}
