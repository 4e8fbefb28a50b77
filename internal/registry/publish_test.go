package registry

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/kination/bundlepub/api/v1"
	"github.com/kination/bundlepub/internal/executor"
)

// MockExecutor records commands and fails those named in failOn.
type MockExecutor struct {
	commands []executor.Command
	failOn   map[string]bool
}

func (m *MockExecutor) Run(_ context.Context, c executor.Command) ([]byte, error) {
	m.commands = append(m.commands, c)
	if m.failOn[c.String()] {
		return []byte("403 Forbidden"), &executor.ProcessError{Command: c, Output: []byte("403 Forbidden"), ExitCode: 1}
	}
	return nil, nil
}

var _ = Describe("Publisher", func() {
	It("publishes the staging directory with public access", func() {
		mock := &MockExecutor{}
		p := NewPublisher(mock, PublisherConfig{Command: "npm", Access: "public", RootDir: "/repo"})

		Expect(p.Publish(context.Background(), v1.PackageMain)).To(Succeed())
		Expect(mock.commands).To(HaveLen(1))
		Expect(mock.commands[0].String()).To(Equal("npm publish /repo/dist/packages-dist/main --access=public"))
		Expect(mock.commands[0].Dir).To(Equal("/repo"))
	})

	It("omits the access flag when unset", func() {
		mock := &MockExecutor{}
		p := NewPublisher(mock, PublisherConfig{Command: "npm", RootDir: "/repo"})

		Expect(p.Publish(context.Background(), v1.PackageRoot)).To(Succeed())
		Expect(mock.commands[0].Args).To(Equal([]string{"publish", "/repo/dist/packages-dist/root"}))
	})

	It("wraps the process failure", func() {
		mock := &MockExecutor{failOn: map[string]bool{"npm publish /repo/dist/packages-dist/main --access=public": true}}
		p := NewPublisher(mock, PublisherConfig{Command: "npm", Access: "public", RootDir: "/repo"})

		err := p.Publish(context.Background(), v1.PackageMain)
		Expect(err).To(MatchError(ContainSubstring("publish main")))

		var procErr *executor.ProcessError
		Expect(errors.As(err, &procErr)).To(BeTrue())
		Expect(string(procErr.Output)).To(Equal("403 Forbidden"))
	})
})
