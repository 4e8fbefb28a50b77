package registry

import "fmt"

// LoginStreamError is returned when the login process writes to its error stream.
type LoginStreamError struct {
	Output string
}

func (e *LoginStreamError) Error() string {
	return fmt.Sprintf("registry login failed: %s", e.Output)
}

// SessionExitError is returned when the login process exits with a non-zero status.
type SessionExitError struct {
	ExitCode int
	Err      error
}

func (e *SessionExitError) Error() string {
	return fmt.Sprintf("registry login failed: exit status %d", e.ExitCode)
}

func (e *SessionExitError) Unwrap() error {
	return e.Err
}
