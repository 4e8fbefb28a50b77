package executor

import (
	"context"
	"os"

	utilexec "k8s.io/utils/exec"
)

// ProcessExecutor implements the Executor interface with real child processes.
type ProcessExecutor struct {
	exec   utilexec.Interface
	config ExecutorConfig
}

// New creates a ProcessExecutor that spawns processes on the host
func New(cfg ExecutorConfig) *ProcessExecutor {
	return NewWithInterface(utilexec.New(), cfg)
}

// NewWithInterface creates a ProcessExecutor on top of the given exec implementation
func NewWithInterface(iface utilexec.Interface, cfg ExecutorConfig) *ProcessExecutor {
	return &ProcessExecutor{exec: iface, config: cfg}
}

// Run executes the command and waits for it to exit.
func (e *ProcessExecutor) Run(ctx context.Context, c Command) ([]byte, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	cmd := e.exec.CommandContext(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.SetDir(c.Dir)
	}
	if len(c.Env) > 0 {
		cmd.SetEnv(append(os.Environ(), c.Env...))
	}

	log.V(1).Info("Running command", "command", c.String(), "dir", c.Dir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, newProcessError(c, out, err)
	}
	return out, nil
}

// Config returns the executor configuration
func (e *ProcessExecutor) Config() ExecutorConfig {
	return e.config
}
