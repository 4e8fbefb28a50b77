package runner

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/kination/bundlepub/api/v1"
	"github.com/kination/bundlepub/internal/console"
	"github.com/kination/bundlepub/internal/gate"
)

// callLog records the order in which the mocks are invoked.
type callLog struct {
	calls []string
}

type MockBuilder struct {
	log   *callLog
	stamp *bool
	err   error
}

func (m *MockBuilder) Run(_ context.Context, pkgs []v1.PackageName, stamp bool, report *v1.RunReport) error {
	m.log.calls = append(m.log.calls, "build")
	m.stamp = &stamp
	for _, pkg := range pkgs {
		status := report.Package(pkg)
		for _, s := range v1.BuildSteps {
			status.SetStep(s, v1.StateCompleted, "")
		}
	}
	return m.err
}

type MockSession struct {
	log *callLog
	err error
}

func (m *MockSession) Login(context.Context) error {
	m.log.calls = append(m.log.calls, "login")
	return m.err
}

type MockPublisher struct {
	log   *callLog
	failOn v1.PackageName
}

func (m *MockPublisher) Publish(_ context.Context, pkg v1.PackageName) error {
	m.log.calls = append(m.log.calls, "publish "+string(pkg))
	if pkg == m.failOn {
		return errors.New("publish " + string(pkg) + ": 403")
	}
	return nil
}

var (
	mainline    = gate.Signals{PullRequest: "false", Branch: "master", GitBranch: "master", Tag: "v2.3.4"}
	pullRequest = gate.Signals{PullRequest: "17", Branch: "feature", GitBranch: "master"}
)

var _ = Describe("DefaultRunner", func() {
	var (
		calls     *callLog
		builder   *MockBuilder
		session   *MockSession
		publisher *MockPublisher
		config    RunnerConfig
	)

	BeforeEach(func() {
		calls = &callLog{}
		builder = &MockBuilder{log: calls}
		session = &MockSession{log: calls}
		publisher = &MockPublisher{log: calls}
		config = DefaultRunnerConfig()
		config.Version = "2.3.4"
	})

	run := func(signals gate.Signals) (*v1.RunReport, error) {
		return NewRunner(config, signals, builder, session, publisher, console.Discard()).Run(context.Background())
	}

	It("builds, logs in and publishes on a mainline build", func() {
		report, err := run(mainline)

		Expect(err).NotTo(HaveOccurred())
		Expect(calls.calls).To(Equal([]string{"build", "login", "publish main", "publish root"}))
		Expect(*builder.stamp).To(BeTrue())
		Expect(report.State).To(Equal(v1.StateCompleted))
		Expect(report.PublishEnabled).To(BeTrue())
		Expect(report.Login.State).To(Equal(v1.StateCompleted))
		Expect(report.PublishedCount()).To(Equal(2))
	})

	DescribeTable("never touches the registry on a pull request",
		func(signals gate.Signals) {
			report, err := run(signals)

			Expect(err).NotTo(HaveOccurred())
			Expect(calls.calls).To(Equal([]string{"build"}))
			Expect(*builder.stamp).To(BeFalse())
			Expect(report.PublishEnabled).To(BeFalse())
			Expect(report.Login).To(BeNil())
			Expect(report.Package(v1.PackageMain).Step(v1.StepPublish).State).To(Equal(v1.StateSkipped))
		},
		Entry("numbered pull request", pullRequest),
		Entry("unset variable", gate.Signals{Branch: "master", GitBranch: "master"}),
		Entry("any other value", gate.Signals{PullRequest: "true"}),
	)

	It("applies the mainline policy when required", func() {
		config.RequireMainline = true
		_, err := run(gate.Signals{PullRequest: "false", Branch: "feature", GitBranch: "master"})

		Expect(err).NotTo(HaveOccurred())
		Expect(calls.calls).To(Equal([]string{"build"}))
	})

	It("stops before login when the build fails", func() {
		builder.err = errors.New("Process failed: webpack --entry=x")
		report, err := run(mainline)

		Expect(err).To(MatchError(ContainSubstring("webpack")))
		Expect(calls.calls).To(Equal([]string{"build"}))
		Expect(report.State).To(Equal(v1.StateFailed))
		Expect(report.Error).To(ContainSubstring("build failed"))
	})

	It("stops before publishing when login fails", func() {
		session.err = errors.New("registry login failed: exit status 1")
		report, err := run(mainline)

		Expect(err).To(MatchError(session.err))
		Expect(calls.calls).To(Equal([]string{"build", "login"}))
		Expect(report.Login.State).To(Equal(v1.StateFailed))
		Expect(report.PublishedCount()).To(BeZero())
	})

	It("aborts the remaining publishes and reports partial success", func() {
		publisher.failOn = v1.PackageRoot
		report, err := run(mainline)

		Expect(err).To(HaveOccurred())
		Expect(calls.calls).To(Equal([]string{"build", "login", "publish main", "publish root"}))
		Expect(report.PublishedCount()).To(Equal(1))
		Expect(report.Package(v1.PackageMain).Published).To(BeTrue())
		Expect(report.Package(v1.PackageRoot).Step(v1.StepPublish).State).To(Equal(v1.StateFailed))
	})

	It("publishes the configured order", func() {
		config.Packages = []v1.PackageName{"root", "main"}
		_, err := run(mainline)

		Expect(err).NotTo(HaveOccurred())
		Expect(calls.calls).To(Equal([]string{"build", "login", "publish root", "publish main"}))
	})

	It("skips login on a dry run but still walks the publish commands", func() {
		config.DryRun = true
		report, err := run(mainline)

		Expect(err).NotTo(HaveOccurred())
		Expect(calls.calls).To(Equal([]string{"build", "publish main", "publish root"}))
		Expect(report.Login.State).To(Equal(v1.StateSkipped))
	})
})
