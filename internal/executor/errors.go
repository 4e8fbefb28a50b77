package executor

import (
	"errors"
	"fmt"

	utilexec "k8s.io/utils/exec"
)

// ProcessError is returned when a command exits with a non-zero status or
// cannot be started at all.
type ProcessError struct {
	Command Command

	// Output is the combined stdout and stderr of the process
	Output []byte

	// ExitCode is the exit status, or -1 if the process never ran to completion
	ExitCode int

	Err error
}

func newProcessError(cmd Command, output []byte, err error) *ProcessError {
	code := -1
	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitStatus()
	}
	return &ProcessError{Command: cmd, Output: output, ExitCode: code, Err: err}
}

func (e *ProcessError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("Process failed: %s: %v\n%s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("Process failed: %s\n%s", e.Command, e.Output)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
