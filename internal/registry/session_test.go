package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	utilexec "k8s.io/utils/exec"
	testingexec "k8s.io/utils/exec/testing"
)

var testCreds = Credentials{Username: "alice", Password: "s3cret", Email: "alice@example.com"}

// writeLoginScript creates an executable that plays the registry CLI.
// Answers it receives are appended to <dir>/answers.
func writeLoginScript(dir, body string) string {
	path := filepath.Join(dir, "fake-registry")
	script := "#!/bin/sh\n[ \"$1\" = login ] || exit 9\nANSWERS=\"" + filepath.Join(dir, "answers") + "\"\n" + body + "\n"
	Expect(os.WriteFile(path, []byte(script), 0o755)).To(Succeed())
	return path
}

func readAnswers(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, "answers"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	Expect(err).NotTo(HaveOccurred())
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

const npmDialogue = `printf 'Username: '; read u; echo "$u" >> "$ANSWERS"
printf 'Password: '; read p; echo "$p" >> "$ANSWERS"
printf 'Email: (this IS public) '; read e; echo "$e" >> "$ANSWERS"
echo "Logged in as $u on https://registry.npmjs.org/."`

var _ = Describe("Credentials", func() {
	It("accepts a complete set", func() {
		Expect(testCreds.Validate()).To(Succeed())
	})

	DescribeTable("rejects incomplete sets",
		func(c Credentials) {
			Expect(c.Validate()).To(MatchError(ErrMissingCredentials))
		},
		Entry("no username", Credentials{Password: "p", Email: "a@b"}),
		Entry("no password", Credentials{Username: "u", Email: "a@b"}),
		Entry("no email", Credentials{Username: "u", Password: "p"}),
		Entry("email without @", Credentials{Username: "u", Password: "p", Email: "nobody"}),
	)

	It("reads the environment", func() {
		GinkgoT().Setenv(EnvUsername, "bob")
		GinkgoT().Setenv(EnvPassword, "pw")
		GinkgoT().Setenv(EnvEmail, "bob@example.com")
		Expect(CredentialsFromEnv()).To(Equal(Credentials{Username: "bob", Password: "pw", Email: "bob@example.com"}))
	})

	It("never prints the password", func() {
		Expect(fmt.Sprintf("%v %+v %#v %s", testCreds, testCreds, testCreds, testCreds)).NotTo(ContainSubstring("s3cret"))
	})
})

var _ = Describe("Session", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	newSession := func(script string, match PromptMatch, creds Credentials) *Session {
		cfg := DefaultSessionConfig()
		cfg.Command = writeLoginScript(dir, script)
		cfg.Match = match
		return NewSession(utilexec.New(), creds, cfg)
	}

	It("answers username, password and email in prompt order", func() {
		s := newSession(npmDialogue, MatchPrefix, testCreds)

		Expect(s.Login(context.Background())).To(Succeed())
		Expect(readAnswers(dir)).To(Equal([]string{"alice", "s3cret", "alice@example.com"}))
		Expect(s.State()).To(Equal(StateDone))
	})

	It("ignores unrecognised output in prefix mode", func() {
		script := `echo "npm notice Log in on https://registry.npmjs.org/"; sleep 0.2
` + npmDialogue
		s := newSession(script, MatchPrefix, testCreds)

		Expect(s.Login(context.Background())).To(Succeed())
		Expect(readAnswers(dir)).To(Equal([]string{"alice", "s3cret", "alice@example.com"}))
	})

	It("answers any other prompt with the email in exact mode", func() {
		s := newSession(npmDialogue, MatchExact, testCreds)

		Expect(s.Login(context.Background())).To(Succeed())
		Expect(readAnswers(dir)).To(Equal([]string{"alice", "s3cret", "alice@example.com"}))
	})

	It("keeps answering exact prompts after early output in exact mode", func() {
		script := `echo "npm notice Log in on https://registry.npmjs.org/"; read first; echo "$first" >> "$ANSWERS"; sleep 0.2
` + npmDialogue
		cfg := DefaultSessionConfig()
		cfg.Command = writeLoginScript(dir, script)
		cfg.Match = MatchExact
		cfg.Timeout = 5 * time.Second
		s := NewSession(utilexec.New(), testCreds, cfg)

		Expect(s.Login(context.Background())).To(Succeed())
		Expect(readAnswers(dir)).To(Equal([]string{"alice@example.com", "alice", "s3cret", "alice@example.com"}))
		Expect(s.State()).To(Equal(StateDone))
	})

	It("answers a repeated prompt again", func() {
		script := `printf 'Username: '; read u; echo "$u" >> "$ANSWERS"
printf 'Username: '; read u; echo "$u" >> "$ANSWERS"
printf 'Password: '; read p; echo "$p" >> "$ANSWERS"
printf 'Email: '; read e; echo "$e" >> "$ANSWERS"`
		s := newSession(script, MatchPrefix, testCreds)

		Expect(s.Login(context.Background())).To(Succeed())
		Expect(readAnswers(dir)).To(Equal([]string{"alice", "alice", "s3cret", "alice@example.com"}))
	})

	It("fails on error stream output and tears the process down", func() {
		var mu sync.Mutex
		var surfaced []string
		cfg := DefaultSessionConfig()
		cfg.Command = writeLoginScript(dir, `echo "npm ERR! code E401" >&2; exec sleep 30`)
		cfg.OnError = func(msg string) {
			mu.Lock()
			defer mu.Unlock()
			surfaced = append(surfaced, msg)
		}
		s := NewSession(utilexec.New(), testCreds, cfg)

		start := time.Now()
		err := s.Login(context.Background())

		var streamErr *LoginStreamError
		Expect(errors.As(err, &streamErr)).To(BeTrue(), "got %v", err)
		Expect(streamErr.Output).To(Equal("npm ERR! code E401"))
		Expect(time.Since(start)).To(BeNumerically("<", 9*time.Second))

		mu.Lock()
		defer mu.Unlock()
		Expect(surfaced).To(HaveLen(1))
		Expect(surfaced[0]).To(ContainSubstring("E401"))
	})

	It("reports a non-zero exit", func() {
		s := newSession(`printf 'Username: '; read u; exit 3`, MatchPrefix, testCreds)

		err := s.Login(context.Background())
		var exitErr *SessionExitError
		Expect(errors.As(err, &exitErr)).To(BeTrue(), "got %v", err)
		Expect(exitErr.ExitCode).To(Equal(3))
	})

	It("gives up when the timeout expires", func() {
		cfg := DefaultSessionConfig()
		cfg.Command = writeLoginScript(dir, `exec sleep 30`)
		cfg.Timeout = 200 * time.Millisecond
		s := NewSession(utilexec.New(), testCreds, cfg)

		start := time.Now()
		err := s.Login(context.Background())
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(time.Since(start)).To(BeNumerically("<", 9*time.Second))
	})

	It("fails when the login command cannot start", func() {
		cfg := DefaultSessionConfig()
		cfg.Command = filepath.Join(dir, "missing")
		s := NewSession(utilexec.New(), testCreds, cfg)

		Expect(s.Login(context.Background())).To(MatchError(ContainSubstring("start")))
	})

	It("rejects missing credentials before spawning anything", func() {
		fexec := &testingexec.FakeExec{}
		s := NewSession(fexec, Credentials{Email: "a@b"}, DefaultSessionConfig())

		Expect(s.Login(context.Background())).To(MatchError(ErrMissingCredentials))
		Expect(fexec.CommandCalls).To(BeZero())
	})
})

var _ = Describe("SessionState", func() {
	It("has readable names", func() {
		Expect(StateAwaitingUsername.String()).To(Equal("AwaitingUsername"))
		Expect(StateDone.String()).To(Equal("Done"))
		Expect(SessionState(9).String()).To(Equal("SessionState(9)"))
	})
})
