// Package console prints operator-facing banner and error lines. Colour is
// chosen per writer, so redirected output stays plain.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ANSI palette indexes: white for progress, red for errors.
const (
	colorInfo  = lipgloss.Color("7")
	colorError = lipgloss.Color("1")
)

// Console writes progress to out and failures to errOut.
type Console struct {
	out    io.Writer
	errOut io.Writer
	info   lipgloss.Style
	fail   lipgloss.Style
}

// New creates a Console for the given writers
func New(out, errOut io.Writer) *Console {
	return &Console{
		out:    out,
		errOut: errOut,
		info:   lipgloss.NewRenderer(out).NewStyle().Foreground(colorInfo).TabWidth(lipgloss.NoTabConversion),
		fail:   lipgloss.NewRenderer(errOut).NewStyle().Foreground(colorError).TabWidth(lipgloss.NoTabConversion),
	}
}

// Stdio creates a Console on os.Stdout and os.Stderr
func Stdio() *Console {
	return New(os.Stdout, os.Stderr)
}

// Discard creates a Console that prints nothing
func Discard() *Console {
	return New(io.Discard, io.Discard)
}

// Printf writes a progress line.
func (c *Console) Printf(format string, args ...any) {
	if c == nil {
		return
	}
	fmt.Fprintln(c.out, render(c.info, fmt.Sprintf(format, args...)))
}

// Errorf writes an error line.
func (c *Console) Errorf(format string, args ...any) {
	if c == nil {
		return
	}
	fmt.Fprintln(c.errOut, render(c.fail, fmt.Sprintf(format, args...)))
}

// Banner writes a package step banner such as "======      [main]: PACKING    =====".
func (c *Console) Banner(pkg, step string) {
	c.Printf("======      [%s]: %-10s =====", pkg, step)
}

// render styles each line on its own so multi-line output is not padded to a block.
func render(style lipgloss.Style, msg string) string {
	msg = strings.TrimRight(msg, "\n")
	lines := strings.Split(msg, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
