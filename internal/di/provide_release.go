package di

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/lifio/readlif/internal/dist"
	"github.com/lifio/readlif/internal/pipeline"
	"github.com/lifio/readlif/internal/policy"
	"github.com/lifio/readlif/internal/registry"
	"github.com/lifio/readlif/internal/secrets"
)

// ProvideRegistry selects the artifact store named by the deploy
// descriptor.
func ProvideRegistry(p *pipeline.Pipeline, client *s3.Client) (registry.Registry, error) {
	deploy, err := p.Deploy()
	if err != nil {
		return nil, err
	}

	switch deploy.Provider {
	case pipeline.ProviderS3:
		if deploy.Bucket == "" {
			return nil, fmt.Errorf("s3 deploy declares no bucket")
		}
		return registry.NewS3Registry(client, deploy.Bucket, deploy.Prefix), nil
	case pipeline.ProviderLocal:
		if deploy.Dir == "" {
			return nil, fmt.Errorf("local deploy declares no dir")
		}
		return registry.NewLocalRegistry(deploy.Dir), nil
	default:
		return nil, fmt.Errorf("unknown deploy provider %q (known: %s, %s)", deploy.Provider, pipeline.ProviderLocal, pipeline.ProviderS3)
	}
}

func ProvideReleaseGate() (*policy.Gate, error) {
	return policy.NewGate()
}

// ProvideDistBuilder stages distributions under the working tree. The
// project name defaults to the working directory's base name.
func ProvideDistBuilder(project Project, staging StagingDir) (*dist.Builder, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	name := string(project)
	if name == "" {
		name = filepath.Base(root)
	}
	stagingDir := string(staging)
	if stagingDir == "" {
		stagingDir = filepath.Join(root, "dist")
	}

	return &dist.Builder{
		ProjectName: name,
		RootDir:     root,
		BinaryPath:  filepath.Join(root, "bin", name),
		StagingDir:  stagingDir,
	}, nil
}

func ProvidePublisher(reg registry.Registry, resolver *secrets.Resolver, logger zerolog.Logger, dryRun DryRun) *registry.Publisher {
	return registry.NewPublisher(reg, resolver, logger, bool(dryRun))
}
