package ui

import (
	"fmt"
	"strings"
)

// Frame prints body between dimmed separators, indented, under title.
// It is used for captured command output such as `devcontainer up`
// diagnostics. An empty body prints nothing.
func (u *UI) Frame(title, body string) {
	body = strings.TrimRight(body, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	u.println(u.style(fmt.Sprintf("  --- %s ---", title), "", false, true))
	for _, line := range strings.Split(body, "\n") {
		u.println("  " + line)
	}
	u.println(u.style("  ---", "", false, true))
}
