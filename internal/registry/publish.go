package registry

import (
	"context"
	"fmt"

	v1 "github.com/kination/bundlepub/api/v1"
	"github.com/kination/bundlepub/internal/executor"
	"github.com/kination/bundlepub/internal/pipeline"
)

// PublisherConfig holds configuration for the publisher
type PublisherConfig struct {
	// Command is the registry CLI, invoked as "<Command> publish <stage dir> --access=<Access>"
	Command string
	Access  string

	// RootDir locates the staging directories and is the working directory
	RootDir string
}

// Publisher uploads staged packages through the registry CLI.
type Publisher struct {
	exec   executor.Executor
	config PublisherConfig
}

// NewPublisher creates a Publisher
func NewPublisher(exec executor.Executor, cfg PublisherConfig) *Publisher {
	return &Publisher{exec: exec, config: cfg}
}

// Publish uploads the staging directory of one package.
func (p *Publisher) Publish(ctx context.Context, pkg v1.PackageName) error {
	stage := pipeline.PathsFor(p.config.RootDir, pkg).StageDir

	args := []string{"publish", stage}
	if p.config.Access != "" {
		args = append(args, "--access="+p.config.Access)
	}

	log.Info("Publishing package", "package", pkg, "dir", stage)
	if _, err := p.exec.Run(ctx, executor.Command{Name: p.config.Command, Args: args, Dir: p.config.RootDir}); err != nil {
		return fmt.Errorf("publish %s: %w", pkg, err)
	}
	return nil
}
