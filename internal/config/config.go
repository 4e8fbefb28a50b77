// Package config holds the release pipeline settings. Defaults reproduce the
// hard-coded build script; an optional release.yaml in the project root
// overrides them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	v1 "github.com/kination/bundlepub/api/v1"
)

const (
	// DefaultConfigFile is looked up in the root directory when no path is given
	DefaultConfigFile = "release.yaml"

	// EnvFile is loaded from the root directory without overriding set variables
	EnvFile = ".env"
)

// Prompt matching modes for the registry login.
const (
	PromptMatchPrefix = "prefix"
	PromptMatchExact  = "exact"
)

// ToolsConfig names the external programs the pipeline shells out to.
type ToolsConfig struct {
	Bundler       string `yaml:"bundler"`
	BundlerConfig string `yaml:"bundler_config"`
	// Minifier is resolved against the root directory when relative
	Minifier string `yaml:"minifier"`
	Sync     string `yaml:"sync"`
	Remove   string `yaml:"remove"`
	MakeDir  string `yaml:"make_dir"`
}

// RegistryConfig configures login and publish.
type RegistryConfig struct {
	Command     string `yaml:"command"`
	Access      string `yaml:"access"`
	PromptMatch string `yaml:"prompt_match"`
}

// TimeoutConfig bounds blocking operations. Zero means wait forever.
type TimeoutConfig struct {
	Command time.Duration `yaml:"command"`
	Login   time.Duration `yaml:"login"`
}

// GateConfig tightens the publish decision.
type GateConfig struct {
	RequireMainline bool `yaml:"require_mainline"`
}

// ProjectConfig models release.yaml.
type ProjectConfig struct {
	Packages      []string       `yaml:"packages"`
	Tools         ToolsConfig    `yaml:"tools"`
	Registry      RegistryConfig `yaml:"registry"`
	Timeouts      TimeoutConfig  `yaml:"timeouts"`
	Gate          GateConfig     `yaml:"gate"`
	ExitOnFailure bool           `yaml:"exit_on_failure"`
}

// Config holds the runtime configuration.
type Config struct {
	// RootDir is the project root; every derived path hangs off it
	RootDir string

	// Source is the config file that was applied, empty when defaults are used
	Source string

	Project ProjectConfig
}

// DefaultProjectConfig returns the built-in webpack/uglify/npm toolchain settings
func DefaultProjectConfig() ProjectConfig {
	packages := make([]string, 0, 2)
	for _, p := range v1.DefaultPackages() {
		packages = append(packages, string(p))
	}
	return ProjectConfig{
		Packages: packages,
		Tools: ToolsConfig{
			Bundler:       "webpack",
			BundlerConfig: "config/webpack.config.js",
			Minifier:      "node_modules/uglify-es/bin/uglifyjs",
			Sync:          "rsync",
			Remove:        "rm",
			MakeDir:       "mkdir",
		},
		Registry: RegistryConfig{
			Command:     "npm",
			Access:      "public",
			PromptMatch: PromptMatchPrefix,
		},
		ExitOnFailure: true,
	}
}

// Load builds the configuration for rootDir. An explicit path must exist;
// without one, rootDir/release.yaml is used when present.
func Load(rootDir, path string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root dir: %w", err)
	}

	if err := godotenv.Load(filepath.Join(absRoot, EnvFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", EnvFile, err)
	}

	cfg := &Config{
		RootDir: absRoot,
		Project: DefaultProjectConfig(),
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(absRoot, DefaultConfigFile)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}

	if err := cfg.loadProjectConfig(path, explicit); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadProjectConfig(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config error: %w", err)
	}
	if err := yaml.Unmarshal(data, &c.Project); err != nil {
		return fmt.Errorf("yaml parse error in %s: %w", path, err)
	}
	c.Source = path
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Project.Packages) == 0 {
		return errors.New("config: at least one package is required")
	}
	seen := sets.New[string]()
	for _, p := range c.Project.Packages {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
			return fmt.Errorf("config: invalid package name %q", p)
		}
		if seen.Has(p) {
			return fmt.Errorf("config: duplicate package %q", p)
		}
		seen.Insert(p)
	}

	tools := map[string]string{
		"tools.bundler":    c.Project.Tools.Bundler,
		"tools.minifier":   c.Project.Tools.Minifier,
		"tools.sync":       c.Project.Tools.Sync,
		"tools.remove":     c.Project.Tools.Remove,
		"tools.make_dir":   c.Project.Tools.MakeDir,
		"registry.command": c.Project.Registry.Command,
	}
	for _, key := range sets.List(sets.KeySet(tools)) {
		if strings.TrimSpace(tools[key]) == "" {
			return fmt.Errorf("config: %s must not be empty", key)
		}
	}

	switch c.Project.Registry.PromptMatch {
	case PromptMatchPrefix, PromptMatchExact:
	default:
		return fmt.Errorf("config: registry.prompt_match must be %q or %q, got %q",
			PromptMatchPrefix, PromptMatchExact, c.Project.Registry.PromptMatch)
	}

	if c.Project.Timeouts.Command < 0 || c.Project.Timeouts.Login < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	return nil
}

// PackageNames returns the build order.
func (c *Config) PackageNames() []v1.PackageName {
	out := make([]v1.PackageName, 0, len(c.Project.Packages))
	for _, p := range c.Project.Packages {
		out = append(out, v1.PackageName(p))
	}
	return out
}

// MinifierPath returns the minifier resolved against the root directory
func (c *Config) MinifierPath() string {
	m := c.Project.Tools.Minifier
	if filepath.IsAbs(m) || !strings.ContainsRune(m, '/') {
		return m
	}
	return filepath.Join(c.RootDir, m)
}

// ManifestPath returns the root package.json that carries the release version
func (c *Config) ManifestPath() string {
	return filepath.Join(c.RootDir, "package.json")
}
