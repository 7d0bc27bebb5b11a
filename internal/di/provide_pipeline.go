package di

import (
	"github.com/lifio/readlif/internal/buildinfo"
	"github.com/lifio/readlif/internal/pipeline"
)

// ProvidePipeline loads the release configuration. The configuration is
// read once per invocation and never reloaded.
func ProvidePipeline(path ConfigPath) (*pipeline.Pipeline, error) {
	if path == "" {
		path = pipeline.DefaultConfigPath
	}
	return pipeline.Load(string(path))
}

// ProvideBuildContext captures the CI build context from the process
// environment.
func ProvideBuildContext() buildinfo.Context {
	return buildinfo.FromEnv()
}
