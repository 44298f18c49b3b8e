package ui

import (
	"fmt"
	"sync"
	"time"
)

var brailleFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress shows one line per step: an animated spinner for the current
// step on a terminal, then a check mark once the next step begins. Off a
// terminal each step is printed once as "  msg...".
type Progress struct {
	u *UI

	mu      sync.Mutex
	current string
	done    chan struct{}
	stopped chan struct{}
}

// StartProgress returns an idle Progress. Call Step for each stage and
// Stop (or Fail) at the end.
func (u *UI) StartProgress() *Progress {
	return &Progress{u: u}
}

// Step completes the current step, if any, and starts msg.
func (p *Progress) Step(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finish(true)
	p.current = msg
	if !p.u.isTTY {
		p.u.printf("  %s...\n", msg)
		return
	}
	p.done = make(chan struct{})
	p.stopped = make(chan struct{})
	go p.spin(msg, p.done, p.stopped)
}

// Stop marks the current step as completed.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish(true)
}

// Fail marks the current step as failed.
func (p *Progress) Fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish(false)
}

// finish stops the spinner and, on a terminal, replaces it with the
// step's outcome. Callers hold p.mu.
func (p *Progress) finish(ok bool) {
	if p.current == "" {
		return
	}
	msg := p.current
	p.current = ""
	if p.done == nil {
		if !ok {
			p.u.Failure(msg)
		}
		return
	}

	close(p.done)
	<-p.stopped
	p.done, p.stopped = nil, nil
	if ok {
		p.u.Success(msg)
	} else {
		p.u.Failure(msg)
	}
}

func (p *Progress) spin(msg string, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			// Clear the spinner line.
			_, _ = fmt.Fprintf(p.u.out, "\r\033[K")
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(p.u.out, "\r  %s %s", brailleFrames[i%len(brailleFrames)], msg)
		}
	}
}
