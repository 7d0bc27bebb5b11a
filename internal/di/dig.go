// Package di provides a lightweight wrapper around uber's dig dependency injection framework.
// It simplifies container setup and provides type-safe dependency retrieval with generics.
package di

import (
	"go.uber.org/dig"
)

// Container defines a dependency injection container based on uber's dig.
// This interface allows for easy testing and mocking of the DI container.
type Container interface {
	// Invoke executes a function, injecting its dependencies from the container.
	Invoke(function any, opts ...dig.InvokeOption) error

	// Provide registers a constructor function in the container.
	Provide(constructor any, opts ...dig.ProvideOption) error

	// Scope creates a scoped sub-container with its own set of values.
	Scope(name string, opts ...dig.ScopeOption) *dig.Scope
}

// MustGet returns an instance constructed via dependency injection or panics.
// This is a convenience function for retrieving a dependency from the container
// when you're certain it exists. If the dependency cannot be resolved, it will panic.
//
// Example:
//
//	publisher := MustGet[*registry.Publisher](container)
func MustGet[T any](container Container) (want T) {
	callback := func(got T) {
		want = got
	}
	if err := container.Invoke(callback); err != nil {
		panic(err)
	}
	return want
}

// New creates a new dependency injection container for one CLI invocation.
// Option values (config path, staging dir, project, dry-run) are registered
// as typed dependencies that providers can declare as regular parameters.
// Construction is lazy: the release configuration is only read, and AWS
// clients are only built, when an invoked dependency needs them.
//
// Example:
//
//	container, err := New(
//	    WithConfigPath("release.yml"),
//	    WithDryRun(true),
//	)
func New(opts ...Option) (Container, error) {
	// Build options
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Create dig container
	container := dig.New()
	if err := container.Provide(func() ConfigPath { return o.configPath }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() StagingDir { return o.stagingDir }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() Project { return o.project }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() DryRun { return DryRun(o.dryRun) }); err != nil {
		return nil, err
	}

	// Register all provided constructors
	for _, provider := range core {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	// Register all provided constructors
	for _, provider := range o.providers {
		if err := container.Provide(provider); err != nil {
			return nil, err
		}
	}

	return container, nil
}

var core = []any{
	ProvideLogger,
	ProvideContext,
	ProvideAWSConfig,
	ProvideS3Client,
	ProvideSSMClient,
	ProvideSecretsManagerClient,
	ProvidePipeline,
	ProvideBuildContext,
	ProvideTokenResolver,
	ProvideRegistry,
	ProvideReleaseGate,
	ProvideDistBuilder,
	ProvidePublisher,
}
