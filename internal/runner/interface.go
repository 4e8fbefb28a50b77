// Package runner drives a whole release: the CI gate, the package pipeline
// and, when publishing is enabled, registry login followed by publish.
package runner

import (
	"context"

	v1 "github.com/kination/bundlepub/api/v1"
)

// Runner defines the interface for a release run.
type Runner interface {
	// Run executes the release and returns its report, which is filled in
	// as far as the run got even when an error is returned
	Run(ctx context.Context) (*v1.RunReport, error)
}

// Builder builds and stages packages in order.
type Builder interface {
	Run(ctx context.Context, pkgs []v1.PackageName, stamp bool, report *v1.RunReport) error
}

// Authenticator establishes a registry session.
type Authenticator interface {
	Login(ctx context.Context) error
}

// Releaser publishes one staged package.
type Releaser interface {
	Publish(ctx context.Context, pkg v1.PackageName) error
}

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// Packages is the build and publish order
	Packages []v1.PackageName

	// Version is stamped into every staged manifest
	Version string

	// RequireMainline additionally requires TRAVIS_BRANCH == GIT_BRANCH to publish
	RequireMainline bool

	// ExitOnFailure makes a failed run terminate with a non-zero exit code.
	// When false the failure is only logged.
	ExitOnFailure bool

	// DryRun skips the interactive login
	DryRun bool
}

// DefaultRunnerConfig returns the default runner configuration
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Packages:      v1.DefaultPackages(),
		ExitOnFailure: true,
	}
}
