// Package pipeline builds and stages each package in order:
// Clean, Bundle, Stage, Minify and, when publishing, Stamp.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	logf "sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/kination/bundlepub/api/v1"
	"github.com/kination/bundlepub/internal/config"
	"github.com/kination/bundlepub/internal/console"
	"github.com/kination/bundlepub/internal/executor"
	"github.com/kination/bundlepub/internal/manifest"
)

var log = logf.Log.WithName("pipeline")

// Options holds the tool names and the root directory used to build commands.
type Options struct {
	RootDir string

	Bundler       string
	BundlerConfig string
	Minifier      string
	Sync          string
	Remove        string
	MakeDir       string

	// DryRun leaves the staged manifest untouched
	DryRun bool
}

// OptionsFromConfig maps the loaded configuration onto pipeline options
func OptionsFromConfig(cfg *config.Config) Options {
	tools := cfg.Project.Tools
	return Options{
		RootDir:       cfg.RootDir,
		Bundler:       tools.Bundler,
		BundlerConfig: tools.BundlerConfig,
		Minifier:      cfg.MinifierPath(),
		Sync:          tools.Sync,
		Remove:        tools.Remove,
		MakeDir:       tools.MakeDir,
	}
}

// Pipeline runs the build steps through an Executor.
type Pipeline struct {
	exec    executor.Executor
	opts    Options
	version string
	out     *console.Console
}

// New creates a Pipeline that stamps the given version
func New(exec executor.Executor, version string, opts Options, out *console.Console) *Pipeline {
	return &Pipeline{exec: exec, opts: opts, version: version, out: out}
}

type step struct {
	name   v1.StepName
	banner string
	run    func(context.Context, v1.PathSet) error
}

// Run builds every package in order and stops at the first failure.
// When stamp is false the Stamp step is skipped.
func (p *Pipeline) Run(ctx context.Context, pkgs []v1.PackageName, stamp bool, report *v1.RunReport) error {
	p.out.Printf("====== BUILDING: Version %s", p.version)
	for _, pkg := range pkgs {
		if err := p.Build(ctx, pkg, stamp, report.Package(pkg)); err != nil {
			return err
		}
	}
	return nil
}

// Build runs the step sequence for one package and records each step in status.
func (p *Pipeline) Build(ctx context.Context, pkg v1.PackageName, stamp bool, status *v1.PackageStatus) error {
	paths := PathsFor(p.opts.RootDir, pkg)
	steps := []step{
		{v1.StepClean, "CLEANING", p.Clean},
		{v1.StepBundle, "PACKING", p.Bundle},
		{v1.StepStage, "BUNDLING", p.Stage},
		{v1.StepMinify, "MINIFY", p.Minify},
		{v1.StepStamp, "VERSIONING", p.Stamp},
	}

	for _, s := range steps {
		status.SetStep(s.name, v1.StatePending, "")
	}

	for _, s := range steps {
		if s.name == v1.StepStamp && !stamp {
			log.Info("Skipping version stamp", "package", pkg, "reason", "publish disabled")
			status.SetStep(s.name, v1.StateSkipped, "publish disabled")
			continue
		}

		if err := ctx.Err(); err != nil {
			status.SetStep(s.name, v1.StateFailed, err.Error())
			return fmt.Errorf("%s: %w", pkg, err)
		}

		p.out.Banner(string(pkg), s.banner)
		status.SetStep(s.name, v1.StateRunning, "")
		log.Info("Running step", "package", pkg, "step", s.name)

		if err := s.run(ctx, paths); err != nil {
			status.SetStep(s.name, v1.StateFailed, err.Error())
			return fmt.Errorf("%s %s: %w", pkg, s.name, err)
		}
		status.SetStep(s.name, v1.StateCompleted, "")
	}
	return nil
}

// Clean removes the previous bundle output and staging directories.
func (p *Pipeline) Clean(ctx context.Context, paths v1.PathSet) error {
	for _, dir := range []string{paths.OutDir, paths.StageDir} {
		if err := p.run(ctx, p.opts.Remove, "-rf", dir); err != nil {
			return err
		}
	}
	return nil
}

// Bundle invokes the bundler for the package entry point.
func (p *Pipeline) Bundle(ctx context.Context, paths v1.PathSet) error {
	return p.run(ctx, p.opts.Bundler,
		"--config="+p.opts.BundlerConfig,
		"--entry="+paths.EntryPoint,
		"--output-library="+string(paths.Package),
		"--output-path="+paths.OutDir,
		"--output-filename="+paths.Filename,
	)
}

// Stage fills the staging directory with the bundle output plus the
// package manifest and directory skeleton of the source tree.
func (p *Pipeline) Stage(ctx context.Context, paths v1.PathSet) error {
	if err := p.run(ctx, p.opts.MakeDir, "-p", paths.StageDir); err != nil {
		return err
	}
	if err := p.run(ctx, p.opts.Sync, "-a", paths.OutDir+"/", paths.StageDir); err != nil {
		return err
	}
	return p.run(ctx, p.opts.Sync, "-am",
		"--include="+manifest.FileName, "--include=*/", "--exclude=*",
		paths.SrcDir+"/", paths.StageDir+"/",
	)
}

// Minify writes the minified sibling of the bundle into the staging directory.
func (p *Pipeline) Minify(ctx context.Context, paths v1.PathSet) error {
	return p.run(ctx, p.opts.Minifier,
		filepath.Join(paths.OutDir, paths.Filename),
		"--output", filepath.Join(paths.StageDir, paths.MinifiedFilename),
	)
}

// Stamp overwrites the version of the staged manifest.
func (p *Pipeline) Stamp(_ context.Context, paths v1.PathSet) error {
	path := filepath.Join(paths.StageDir, manifest.FileName)
	if p.opts.DryRun {
		log.Info("Dry run", "stamp", path, "version", p.version)
		return nil
	}
	if err := manifest.Stamp(path, p.version); err != nil {
		return fmt.Errorf("stamp version: %w", err)
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, name string, args ...string) error {
	_, err := p.exec.Run(ctx, executor.Command{Name: name, Args: args, Dir: p.opts.RootDir})
	return err
}
