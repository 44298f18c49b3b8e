// Package probe checks whether the container runtime and the external tools
// a spawn depends on are usable.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fgrehm/cradle/internal/driver"
)

// DefaultTimeout bounds a single availability check.
const DefaultTimeout = 10 * time.Second

// Availability is the outcome of a runtime check.
type Availability struct {
	IsAvailable bool
	IsRunning   bool
	Version     string
	Message     string
}

// DockerProbe checks that the Docker daemon answers.
type DockerProbe struct {
	runtime driver.Runtime
	initErr error
	timeout time.Duration
	logger  *slog.Logger
}

// NewDockerProbe creates a probe over rt. initErr is the error returned when
// the runtime client was constructed, if any; a non-nil initErr makes every
// check report the runtime as unavailable.
func NewDockerProbe(rt driver.Runtime, initErr error, timeout time.Duration, logger *slog.Logger) *DockerProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DockerProbe{runtime: rt, initErr: initErr, timeout: timeout, logger: logger}
}

// Check pings the daemon and reads its version. It never returns an error;
// failures are described in Availability.Message.
func (p *DockerProbe) Check(ctx context.Context) Availability {
	if p.initErr != nil {
		return unavailable(p.initErr)
	}
	if p.runtime == nil {
		return unavailable(fmt.Errorf("no runtime client configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.runtime.Ping(ctx); err != nil {
		p.logger.Debug("docker ping failed", "error", err)
		return unavailable(err)
	}

	version, err := p.runtime.ServerVersion(ctx)
	if err != nil {
		p.logger.Debug("docker version failed", "error", err)
		return unavailable(err)
	}

	return Availability{
		IsAvailable: true,
		IsRunning:   true,
		Version:     version,
		Message:     "Docker " + version + " is running",
	}
}

func unavailable(err error) Availability {
	return Availability{Message: fmt.Sprintf("Docker is not available: %v", err)}
}
