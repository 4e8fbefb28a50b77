package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	utilexec "k8s.io/utils/exec"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

var log = logf.Log.WithName("registry")

// PromptMatch selects how login output is recognised as a prompt.
type PromptMatch string

const (
	// MatchPrefix answers output starting with Username, Password or Email and ignores the rest
	MatchPrefix PromptMatch = "prefix"
	// MatchExact answers "Username: " and "Password: " and treats any other output as the email prompt.
	// Output that is not a prompt is answered with the email only once.
	MatchExact PromptMatch = "exact"
)

// SessionState is the position of the login dialogue.
type SessionState int

const (
	StateAwaitingUsername SessionState = iota
	StateAwaitingPassword
	StateAwaitingEmail
	StateDone
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingUsername:
		return "AwaitingUsername"
	case StateAwaitingPassword:
		return "AwaitingPassword"
	case StateAwaitingEmail:
		return "AwaitingEmail"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

type prompt int

const (
	promptNone prompt = iota
	promptUsername
	promptPassword
	promptEmail
)

// SessionConfig holds configuration for the login session
type SessionConfig struct {
	// Command is the registry CLI; it is invoked as "<Command> login"
	Command string

	// Dir is the working directory of the login process
	Dir string

	Match PromptMatch

	// Timeout bounds the whole dialogue. Zero waits forever.
	Timeout time.Duration

	// OnError receives error stream output before the session is torn down
	OnError func(msg string)
}

// DefaultSessionConfig returns the default session configuration
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Command: "npm",
		Match:   MatchPrefix,
	}
}

// Session logs into the registry by answering the prompts of its interactive login.
type Session struct {
	exec   utilexec.Interface
	creds  Credentials
	config SessionConfig

	mu    sync.Mutex
	state SessionState
}

// NewSession creates a login session
func NewSession(iface utilexec.Interface, creds Credentials, cfg SessionConfig) *Session {
	return &Session{exec: iface, creds: creds, config: cfg}
}

// State returns the current dialogue state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Login runs the login dialogue and returns once the process has exited.
// Credentials are validated before anything is spawned.
func (s *Session) Login(ctx context.Context) error {
	if err := s.creds.Validate(); err != nil {
		return err
	}
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	s.mu.Lock()
	s.state = StateAwaitingUsername
	s.mu.Unlock()

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("registry login: stdin pipe: %w", err)
	}
	defer stdinW.Close()

	cmd := s.exec.CommandContext(ctx, s.config.Command, "login")
	if s.config.Dir != "" {
		cmd.SetDir(s.config.Dir)
	}
	cmd.SetStdin(stdinR)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdinR.Close()
		return fmt.Errorf("registry login: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdinR.Close()
		return fmt.Errorf("registry login: stderr pipe: %w", err)
	}

	log.Info("Logging in to registry", "command", s.config.Command, "username", s.creds.Username)
	err = cmd.Start()
	// the child holds its own copy of the read end
	stdinR.Close()
	if err != nil {
		return fmt.Errorf("registry login: start: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.answerPrompts(gctx, stdout, stdinW) })
	g.Go(func() error { return s.watchErrors(stderr) })

	done := make(chan struct{})
	go func() {
		select {
		case <-gctx.Done():
			_ = stdinW.Close()
			_ = stdout.Close()
			_ = stderr.Close()
		case <-done:
		}
	}()

	streamErr := g.Wait()
	close(done)
	_ = stdinW.Close()

	if streamErr != nil {
		cmd.Stop()
		_ = cmd.Wait()
		var lerr *LoginStreamError
		if !errors.As(streamErr, &lerr) && ctx.Err() != nil {
			return fmt.Errorf("registry login: %w", ctx.Err())
		}
		return streamErr
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("registry login: %w", ctx.Err())
		}
		code := -1
		var exitErr utilexec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitStatus()
		}
		return &SessionExitError{ExitCode: code, Err: err}
	}

	log.Info("Logged in to registry", "state", s.State())
	return nil
}

// answerPrompts reads login output chunk by chunk and writes one answer per prompt.
func (s *Session) answerPrompts(ctx context.Context, stdout io.Reader, stdin io.Writer) error {
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if reply, ok := s.advance(string(buf[:n])); ok {
				if _, werr := io.WriteString(stdin, reply+"\n"); werr != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return fmt.Errorf("registry login: write answer: %w", werr)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("registry login: read output: %w", err)
		}
	}
}

// watchErrors fails the session on the first chunk written to the error stream.
func (s *Session) watchErrors(stderr io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			msg := string(buf[:n])
			if s.config.OnError != nil {
				s.config.OnError(msg)
			}
			return &LoginStreamError{Output: strings.TrimSpace(msg)}
		}
		if err != nil {
			return nil
		}
	}
}

// advance moves the state machine for one output chunk and returns the answer to write.
func (s *Session) advance(chunk string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := s.classify(chunk)
	// Once done, only an explicit exact-mode prompt is answered again.
	if s.state == StateDone && (s.config.Match != MatchExact || kind == promptEmail) {
		return "", false
	}

	switch kind {
	case promptUsername:
		s.state = StateAwaitingPassword
		log.V(1).Info("Answering prompt", "prompt", "username")
		return s.creds.Username, true
	case promptPassword:
		s.state = StateAwaitingEmail
		log.V(1).Info("Answering prompt", "prompt", "password")
		return s.creds.Password, true
	case promptEmail:
		s.state = StateDone
		log.V(1).Info("Answering prompt", "prompt", "email")
		return s.creds.Email, true
	}
	return "", false
}

func (s *Session) classify(chunk string) prompt {
	if s.config.Match == MatchExact {
		switch chunk {
		case "Username: ":
			return promptUsername
		case "Password: ":
			return promptPassword
		default:
			return promptEmail
		}
	}

	switch {
	case strings.HasPrefix(chunk, "Username"):
		return promptUsername
	case strings.HasPrefix(chunk, "Password"):
		return promptPassword
	case strings.HasPrefix(chunk, "Email"):
		return promptEmail
	}
	return promptNone
}
