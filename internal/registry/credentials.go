// Package registry talks to the package registry CLI: an interactive login
// scripted over stdin/stdout, and one publish per staged package.
package registry

import (
	"errors"
	"os"
	"strings"
)

// Environment variables holding the registry credentials.
const (
	EnvUsername = "NPM_USERNAME"
	EnvPassword = "NPM_PASSWORD"
	EnvEmail    = "NPM_EMAIL"
)

// ErrMissingCredentials is returned before anything is spawned when a
// credential is unset or the email has no "@".
var ErrMissingCredentials = errors.New("registry login data is not set")

// Credentials are only ever written to the login prompt.
type Credentials struct {
	Username string
	Password string
	Email    string
}

// CredentialsFromEnv reads the credentials from the process environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
		Email:    os.Getenv(EnvEmail),
	}
}

// Validate checks that all three values are present.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" || c.Email == "" || !strings.Contains(c.Email, "@") {
		return ErrMissingCredentials
	}
	return nil
}

// String keeps the password out of logs and error messages.
func (c Credentials) String() string {
	return "Credentials{Username:" + c.Username + ", Password:<redacted>, Email:" + c.Email + "}"
}

// GoString applies the same redaction to %#v.
func (c Credentials) GoString() string {
	return c.String()
}
