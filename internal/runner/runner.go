package runner

import (
	"context"
	"fmt"

	logf "sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/kination/bundlepub/api/v1"
	"github.com/kination/bundlepub/internal/console"
	"github.com/kination/bundlepub/internal/gate"
)

var log = logf.Log.WithName("runner")

// DefaultRunner implements the Runner interface.
type DefaultRunner struct {
	config    RunnerConfig
	signals   gate.Signals
	builder   Builder
	session   Authenticator
	publisher Releaser
	out       *console.Console
}

// NewRunner creates a DefaultRunner
func NewRunner(config RunnerConfig, signals gate.Signals, builder Builder, session Authenticator, publisher Releaser, out *console.Console) *DefaultRunner {
	return &DefaultRunner{
		config:    config,
		signals:   signals,
		builder:   builder,
		session:   session,
		publisher: publisher,
		out:       out,
	}
}

// Run executes gate, pipeline, login and publish strictly in that order.
// The first failure aborts the run.
func (r *DefaultRunner) Run(ctx context.Context) (*v1.RunReport, error) {
	report := v1.NewRunReport(r.config.Version, r.config.Packages)
	report.State = v1.StateRunning

	gate.Log(log, r.signals)
	publish := gate.Policy{RequireMainline: r.config.RequireMainline}.Decide(r.signals)
	report.PublishEnabled = publish
	log.Info("Release gate", "publish", publish, "version", r.config.Version)

	if err := r.builder.Run(ctx, r.config.Packages, publish, report); err != nil {
		return r.fail(report, fmt.Errorf("build failed: %w", err))
	}

	if !publish {
		log.Info("Publish disabled, stopping after build")
		for i := range report.Packages {
			report.Packages[i].SetStep(v1.StepPublish, v1.StateSkipped, "publish disabled")
		}
		report.Finish(nil)
		return report, nil
	}

	report.Login = &v1.StepStatus{Name: v1.StepLogin, State: v1.StateRunning}
	if r.config.DryRun {
		log.Info("Dry run, skipping registry login")
		report.Login.State = v1.StateSkipped
		report.Login.Message = "dry run"
	} else {
		if err := r.session.Login(ctx); err != nil {
			report.Login.State = v1.StateFailed
			report.Login.Message = err.Error()
			return r.fail(report, err)
		}
		report.Login.State = v1.StateCompleted
	}

	r.out.Printf("====== PUBLISHING: Version %s", r.config.Version)
	for _, pkg := range r.config.Packages {
		status := report.Package(pkg)
		status.SetStep(v1.StepPublish, v1.StateRunning, "")
		if err := r.publisher.Publish(ctx, pkg); err != nil {
			status.SetStep(v1.StepPublish, v1.StateFailed, err.Error())
			return r.fail(report, err)
		}
		status.SetStep(v1.StepPublish, v1.StateCompleted, "")
		status.Published = true
		r.out.Banner(string(pkg), "PUBLISHED")
	}

	report.Finish(nil)
	return report, nil
}

func (r *DefaultRunner) fail(report *v1.RunReport, err error) (*v1.RunReport, error) {
	report.Finish(err)
	log.Error(err, "Release failed", "published", report.PublishedCount(), "packages", len(report.Packages))
	return report, err
}

// Config returns the runner configuration
func (r *DefaultRunner) Config() RunnerConfig {
	return r.config
}
