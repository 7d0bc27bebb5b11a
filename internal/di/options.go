package di

type ConfigPath string
type StagingDir string
type Project string
type DryRun bool

// Option is a function that configures the dependency injection container.
type Option func(*options)

func WithConfigPath(path string) Option {
	return func(opts *options) {
		opts.configPath = ConfigPath(path)
	}
}

func WithStagingDir(dir string) Option {
	return func(opts *options) {
		opts.stagingDir = StagingDir(dir)
	}
}

func WithProject(name string) Option {
	return func(opts *options) {
		opts.project = Project(name)
	}
}

func WithDryRun(dryRun bool) Option {
	return func(opts *options) {
		opts.dryRun = dryRun
	}
}

// WithProviders adds constructor functions to the dependency injection container.
// Each provider should be a constructor function that returns one or more values.
// Providers can declare dependencies as function parameters, which will be
// automatically resolved by the container.
//
// Example:
//
//	WithProviders(
//	    func() *registry.LocalRegistry { return registry.NewLocalRegistry("artifacts") },
//	    func(r *registry.LocalRegistry) *Service { return &Service{Registry: r} },
//	)
func WithProviders(providers ...any) Option {
	return func(opts *options) {
		opts.providers = append(opts.providers, providers...)
	}
}

type options struct {
	configPath ConfigPath
	stagingDir StagingDir
	project    Project
	providers  []any
	dryRun     bool
}
