package errors

import "errors"

var (
	ErrDeployNotDeclared = errors.New("no deploy declared in the pipeline configuration")
	ErrMultipleDeploy    = errors.New("more than one deploy declared in the pipeline configuration")
	ErrArtifactExists    = errors.New("artifact already exists in the registry")
	ErrTokenMissing      = errors.New("deploy token is missing or empty")
	ErrGateDenied        = errors.New("release gate denied publication")
)
