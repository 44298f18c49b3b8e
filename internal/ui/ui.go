// Package ui renders cradle's terminal output: headers, key/value blocks,
// tables and a step progress indicator. Styling is applied only when the
// output is a terminal.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// UI provides styled terminal output.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	isTTY    bool
	renderer *lipgloss.Renderer
}

// New creates a UI that writes to out and errOut.
// TTY detection is performed on out.
func New(out, errOut io.Writer) *UI {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(f.Fd())
	}
	return &UI{
		out:      out,
		errOut:   errOut,
		isTTY:    tty,
		renderer: lipgloss.NewRenderer(out),
	}
}

// IsTTY reports whether the output is a terminal.
func (u *UI) IsTTY() bool {
	return u.isTTY
}

// style renders s with the given foreground color, bold or faint, when the
// output is a terminal and returns it unchanged otherwise.
func (u *UI) style(s string, color string, bold, faint bool) string {
	if !u.isTTY {
		return s
	}
	st := u.renderer.NewStyle().Bold(bold).Faint(faint)
	if color != "" {
		st = st.Foreground(lipgloss.Color(color))
	}
	return st.Render(s)
}
