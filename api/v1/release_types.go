// Package v1 contains the types shared by the release pipeline: package
// identifiers, the per-package path set and the run report.
package v1

import "time"

// PackageName identifies one of the packages under packages/
type PackageName string

// Packages built by default.
const (
	PackageMain PackageName = "main"
	PackageRoot PackageName = "root"
)

// DefaultPackages returns the fixed build order.
func DefaultPackages() []PackageName {
	return []PackageName{PackageMain, PackageRoot}
}

// PathSet holds every path derived from the root directory and a package name.
type PathSet struct {
	Package PackageName `yaml:"package"`

	SrcDir     string `yaml:"srcDir"`     // <root>/packages/<pkg>
	EntryPoint string `yaml:"entryPoint"` // <SrcDir>/src/index.js
	OutDir     string `yaml:"outDir"`     // <root>/dist/package/<pkg>
	StageDir   string `yaml:"stageDir"`   // <root>/dist/packages-dist/<pkg>

	Filename         string `yaml:"filename"`         // <pkg>.js
	MinifiedFilename string `yaml:"minifiedFilename"` // <pkg>.min.js
}

// StepName names a single pipeline step.
type StepName string

// Steps recorded in the run report. Login and Publish run once publishing is enabled.
const (
	StepClean   StepName = "Clean"
	StepBundle  StepName = "Bundle"
	StepStage   StepName = "Stage"
	StepMinify  StepName = "Minify"
	StepStamp   StepName = "Stamp"
	StepLogin   StepName = "Login"
	StepPublish StepName = "Publish"
)

// BuildSteps is the per-package step order.
var BuildSteps = []StepName{StepClean, StepBundle, StepStage, StepMinify, StepStamp}

// StepState represents the current state of a step or of the whole run.
type StepState string

// Step and run states.
const (
	StatePending   StepState = "Pending"
	StateRunning   StepState = "Running"
	StateCompleted StepState = "Completed"
	StateFailed    StepState = "Failed"
	StateSkipped   StepState = "Skipped"
)

// StepStatus is the recorded outcome of one step.
type StepStatus struct {
	Name    StepName  `yaml:"name"`
	State   StepState `yaml:"state"`
	Message string    `yaml:"message,omitempty"`
}

// PackageStatus collects the step statuses of one package.
type PackageStatus struct {
	Name      PackageName  `yaml:"name"`
	Steps     []StepStatus `yaml:"steps"`
	Published bool         `yaml:"published"`
}

// SetStep updates the status of a step, adding it if it was not recorded yet.
func (p *PackageStatus) SetStep(name StepName, state StepState, message string) {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			p.Steps[i].State = state
			p.Steps[i].Message = message
			return
		}
	}
	p.Steps = append(p.Steps, StepStatus{Name: name, State: state, Message: message})
}

// Step returns the recorded status of a step, or nil.
func (p *PackageStatus) Step(name StepName) *StepStatus {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			return &p.Steps[i]
		}
	}
	return nil
}

// RunReport represents the outcome of one pipeline run.
type RunReport struct {
	Version        string          `yaml:"version"`
	PublishEnabled bool            `yaml:"publishEnabled"`
	State          StepState       `yaml:"state"`
	Packages       []PackageStatus `yaml:"packages"`
	Login          *StepStatus     `yaml:"login,omitempty"`
	Error          string          `yaml:"error,omitempty"`
	StartTime      time.Time       `yaml:"startTime"`
	EndTime        *time.Time      `yaml:"endTime,omitempty"`
}

// NewRunReport creates a pending report with one entry per package, in order.
func NewRunReport(version string, packages []PackageName) *RunReport {
	r := &RunReport{
		Version:   version,
		State:     StatePending,
		StartTime: time.Now(),
		Packages:  make([]PackageStatus, 0, len(packages)),
	}
	for _, pkg := range packages {
		r.Packages = append(r.Packages, PackageStatus{Name: pkg})
	}
	return r
}

// Package returns the status entry for a package, adding one if needed.
func (r *RunReport) Package(name PackageName) *PackageStatus {
	for i := range r.Packages {
		if r.Packages[i].Name == name {
			return &r.Packages[i]
		}
	}
	r.Packages = append(r.Packages, PackageStatus{Name: name})
	return &r.Packages[len(r.Packages)-1]
}

// PublishedCount returns how many packages reached the registry.
func (r *RunReport) PublishedCount() int {
	n := 0
	for _, p := range r.Packages {
		if p.Published {
			n++
		}
	}
	return n
}

// Finish stamps the end time and the final state. A non-nil err marks the run failed.
func (r *RunReport) Finish(err error) {
	now := time.Now()
	r.EndTime = &now
	if err != nil {
		r.State = StateFailed
		r.Error = err.Error()
		return
	}
	r.State = StateCompleted
}
