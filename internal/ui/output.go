package ui

import (
	"fmt"
	"strings"
)

const (
	colorRed    = "1"
	colorGreen  = "2"
	colorYellow = "3"
	colorBlue   = "4"
)

// Header prints a section header: "==> msg" in bold blue.
func (u *UI) Header(msg string) {
	u.println(u.style("==> "+msg, colorBlue, true, false))
}

// Success prints "  ✓ msg" in green, or "  ok msg" when not on a terminal.
func (u *UI) Success(msg string) {
	if u.isTTY {
		u.println(u.style("  ✓ "+msg, colorGreen, false, false))
		return
	}
	u.println("  ok " + msg)
}

// Failure prints "  ✗ msg" in red, or "  FAIL msg" when not on a terminal.
func (u *UI) Failure(msg string) {
	if u.isTTY {
		u.println(u.style("  ✗ "+msg, colorRed, false, false))
		return
	}
	u.println("  FAIL " + msg)
}

// Keyval prints a label-value pair with a bold fixed-width label.
func (u *UI) Keyval(key, value string) {
	u.printf("  %s%s\n", u.style(fmt.Sprintf("%-14s", key), "", true, false), value)
}

// Dim prints dimmed text.
func (u *UI) Dim(msg string) {
	u.println(u.style(msg, "", false, true))
}

// Error prints "error: msg" to errOut. Only the prefix is styled so
// multi-line bodies (command diagnostics) are left intact.
func (u *UI) Error(msg string) {
	_, _ = fmt.Fprintf(u.errOut, "%s %s\n", u.style("error:", colorRed, false, false), msg)
}

// Warn prints "warning: msg" to errOut.
func (u *UI) Warn(msg string) {
	_, _ = fmt.Fprintf(u.errOut, "%s %s\n", u.style("warning:", colorYellow, false, false), msg)
}

// StatusColor colors a container status: green when running, red when the
// container is gone, yellow otherwise.
func (u *UI) StatusColor(status string) string {
	switch strings.ToLower(status) {
	case "running":
		return u.style(status, colorGreen, false, false)
	case "missing", "dead":
		return u.style(status, colorRed, false, false)
	}
	return u.style(status, colorYellow, false, false)
}

// Table prints a column-aligned table with bold headers.
func (u *UI) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len(cell))
			}
		}
	}

	u.println(u.style(formatRow(headers, widths), "", true, false))
	for _, row := range rows {
		u.println(formatRow(row, widths))
	}
}

func formatRow(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		if i < len(widths) && i < len(cells)-1 {
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		} else {
			b.WriteString(cell)
		}
	}
	return b.String()
}

// println writes a line to out, discarding errors (not recoverable in CLI output).
func (u *UI) println(msg string) {
	_, _ = fmt.Fprintln(u.out, msg)
}

// printf writes formatted output to out, discarding errors.
func (u *UI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(u.out, format, args...)
}
