// Package gate reads the CI environment and decides whether a run publishes.
package gate

import (
	"os"

	"github.com/go-logr/logr"
)

// Environment variables consulted by the gate.
const (
	EnvPullRequest = "TRAVIS_PULL_REQUEST"
	EnvBranch      = "TRAVIS_BRANCH"
	EnvGitBranch   = "GIT_BRANCH"
	EnvTag         = "TRAVIS_TAG"
)

// Signals holds the raw CI values. They are read once and never mutated.
type Signals struct {
	PullRequest string
	Branch      string
	GitBranch   string
	Tag         string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv reads the signals through lookup. Absent variables read as empty.
func FromEnv(lookup LookupFunc) Signals {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Signals{
		PullRequest: get(EnvPullRequest),
		Branch:      get(EnvBranch),
		GitBranch:   get(EnvGitBranch),
		Tag:         get(EnvTag),
	}
}

// FromOS reads the signals from the process environment.
func FromOS() Signals {
	return FromEnv(os.LookupEnv)
}

// IsPullRequest is true unless TRAVIS_PULL_REQUEST is exactly "false".
// An unset variable counts as a pull request.
func (s Signals) IsPullRequest() bool {
	return s.PullRequest != "false"
}

// IsMainline reports whether the CI branch matches the release branch.
func (s Signals) IsMainline() bool {
	return s.Branch == s.GitBranch
}

// PublishEnabled is the gate decision: publish on anything but a pull request.
func (s Signals) PublishEnabled() bool {
	return !s.IsPullRequest()
}

// Policy tightens the gate decision.
type Policy struct {
	// RequireMainline additionally requires TRAVIS_BRANCH == GIT_BRANCH
	RequireMainline bool
}

// Decide applies the policy to the signals.
func (p Policy) Decide(s Signals) bool {
	if !s.PublishEnabled() {
		return false
	}
	if p.RequireMainline && !s.IsMainline() {
		return false
	}
	return true
}

// Log writes the raw signal values for the operator.
func Log(logger logr.Logger, s Signals) {
	logger.Info("CI signals",
		"pullRequest", s.PullRequest,
		"branchMatch", s.IsMainline(),
		"tag", s.Tag,
	)
}
