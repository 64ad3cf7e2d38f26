package thermal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
)

// DefaultTimeout bounds every probe subprocess.
const DefaultTimeout = 2 * time.Second

// waitDelay bounds how long Wait blocks for I/O after the child is killed.
const waitDelay = 250 * time.Millisecond

// Runner executes probe binaries. It exists so strategies can be tested
// without the real utilities installed.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with exec.CommandContext under a timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns a runner with the given timeout (DefaultTimeout if <= 0).
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout}
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run returns stdout. The child is killed when ctx is cancelled or the
// timeout expires.
func (r *ExecRunner) Run(parent context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	out, err := cmd.Output()
	if parent.Err() != nil {
		return nil, parent.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, hierrors.Wrap(ctx.Err(), hierrors.Timeout,
			fmt.Sprintf("%s did not finish within %s", name, r.Timeout))
	}
	if err != nil {
		return nil, commandError(name, err, stderr.String())
	}
	return out, nil
}

func commandError(name string, err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return hierrors.Wrap(err, hierrors.SourceUnavailable, name+" not found")
	}
	msg := strings.TrimSpace(stderr)
	kind := hierrors.SourceUnavailable
	if needsPrivileges(msg) {
		kind = hierrors.PermissionDenied
	}
	if msg == "" {
		msg = err.Error()
	}
	return hierrors.Wrap(err, kind, fmt.Sprintf("%s failed: %s", name, msg))
}

func needsPrivileges(msg string) bool {
	msg = strings.ToLower(msg)
	for _, needle := range []string{"superuser", "root", "permission", "not permitted", "sudo"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
