// Package executor provides the Executor interface used by every pipeline step
// to run external tools (rm, mkdir, rsync, the bundler, the minifier and the
// registry CLI).
package executor

import (
	"context"
	"strings"
	"time"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

var log = logf.Log.WithName("executor")

// Command describes one external process invocation.
type Command struct {
	// Name is the program to run, looked up in PATH unless it is a path
	Name string

	// Args are passed to the program verbatim
	Args []string

	// Dir is the working directory; empty means the current one
	Dir string

	// Env is appended to the inherited environment
	Env []string
}

// String returns the command line as it would be typed.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Executor defines the interface for running commands synchronously.
// Run blocks until the process exits and returns its combined output.
// A non-zero exit status is reported as a *ProcessError.
type Executor interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecutorConfig holds common configuration for executors
type ExecutorConfig struct {
	// Timeout bounds every command. Zero disables the limit.
	Timeout time.Duration
}

// DefaultExecutorConfig returns the default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Timeout: 0}
}
