package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	utilexec "k8s.io/utils/exec"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/kination/bundlepub/internal/config"
	"github.com/kination/bundlepub/internal/console"
	"github.com/kination/bundlepub/internal/executor"
	"github.com/kination/bundlepub/internal/gate"
	"github.com/kination/bundlepub/internal/manifest"
	"github.com/kination/bundlepub/internal/pipeline"
	"github.com/kination/bundlepub/internal/registry"
	"github.com/kination/bundlepub/internal/report"
	"github.com/kination/bundlepub/internal/runner"
)

var log = logf.Log.WithName("release-cli")

// configError marks failures that happen before anything runs.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func setupLogging(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	logf.SetLogger(crzap.New(
		crzap.UseDevMode(verbose),
		crzap.WriteTo(os.Stderr),
		crzap.Level(level),
	))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootDir, configPath)
	if err != nil {
		return nil, &configError{err}
	}
	if softFail {
		cfg.Project.ExitOnFailure = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, nil
}

// newSession builds the login session. Error stream output reaches the
// operator through the returned LoginStreamError only.
func newSession(cfg *config.Config) *registry.Session {
	return registry.NewSession(utilexec.New(), registry.CredentialsFromEnv(), registry.SessionConfig{
		Command: cfg.Project.Registry.Command,
		Dir:     cfg.RootDir,
		Match:   registry.PromptMatch(cfg.Project.Registry.PromptMatch),
		Timeout: cfg.Project.Timeouts.Login,
	})
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runRelease(cmd *cobra.Command, dry bool) error {
	out := console.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	version, err := manifest.ReadVersion(cfg.ManifestPath())
	if err != nil {
		return &configError{err}
	}
	log.V(1).Info("Loaded configuration", "root", cfg.RootDir, "source", cfg.Source, "version", version)

	var exec executor.Executor
	var recorder *executor.DryRunExecutor
	if dry {
		recorder = executor.NewDryRun()
		exec = recorder
	} else {
		exec = executor.New(executor.ExecutorConfig{Timeout: cfg.Project.Timeouts.Command})
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.DryRun = dry
	build := pipeline.New(exec, version, opts, out)
	publisher := registry.NewPublisher(exec, registry.PublisherConfig{
		Command: cfg.Project.Registry.Command,
		Access:  cfg.Project.Registry.Access,
		RootDir: cfg.RootDir,
	})

	rc := runner.DefaultRunnerConfig()
	rc.Packages = cfg.PackageNames()
	rc.Version = version
	rc.RequireMainline = cfg.Project.Gate.RequireMainline
	rc.ExitOnFailure = cfg.Project.ExitOnFailure
	rc.DryRun = dry

	ctx, cancel := signalContext(cmd)
	defer cancel()

	r := runner.NewRunner(rc, gate.FromOS(), build, newSession(cfg), publisher, out)
	result, runErr := r.Run(ctx)

	if recorder != nil {
		for _, c := range recorder.Commands() {
			fmt.Fprintln(cmd.OutOrStdout(), c.String())
		}
	}
	if reportPath != "" {
		if err := report.Write(reportPath, result); err != nil {
			log.Error(err, "Failed to write run report", "path", reportPath)
		}
	}
	out.Printf("====== %s", report.Summary(result))

	if runErr != nil && !rc.ExitOnFailure {
		log.Info("Run failed, exiting cleanly as requested", "error", runErr.Error())
		return nil
	}
	return runErr
}

func runLogin(cmd *cobra.Command) error {
	out := console.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if err := newSession(cfg).Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	out.Printf("====== LOGGED IN")
	return nil
}
