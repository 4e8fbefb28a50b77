package executor

import (
	"context"
	"sync"
)

// DryRunExecutor records commands instead of running them.
type DryRunExecutor struct {
	mu       sync.Mutex
	commands []Command
}

// NewDryRun creates an empty DryRunExecutor
func NewDryRun() *DryRunExecutor {
	return &DryRunExecutor{}
}

// Run records the command and reports success with no output.
func (d *DryRunExecutor) Run(_ context.Context, c Command) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log.Info("Dry run", "command", c.String())
	d.commands = append(d.commands, c)
	return nil, nil
}

// Commands returns a copy of every recorded command, in call order.
func (d *DryRunExecutor) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Command, len(d.commands))
	copy(out, d.commands)
	return out
}
