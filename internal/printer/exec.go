package printer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// commandRunner abstracts OS command execution so Bluetooth control and the
// device probe can be exercised against canned output in tests.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	RunWithStdin(ctx context.Context, input string, name string, args ...string) ([]byte, error)
}

// execRunner runs OS commands with a bounded timeout. A mutex serializes
// invocations: bluetoothctl sessions against the same adapter step on each
// other when run concurrently.
type execRunner struct {
	mu             sync.Mutex
	defaultTimeout time.Duration
}

func newExecRunner(timeout time.Duration) *execRunner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &execRunner{defaultTimeout: timeout}
}

// Run executes a command and returns its combined output.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.defaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %v", name, r.defaultTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w\noutput: %s", name, err, string(output))
	}
	return output, nil
}

// RunWithStdin executes a command feeding input on stdin. Stdin is attached
// before the process starts to avoid losing the leading lines.
func (r *execRunner) RunWithStdin(ctx context.Context, input string, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.defaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(input)
	output, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("%s timed out after %v", name, r.defaultTimeout)
	}
	if err != nil {
		return output, fmt.Errorf("%s failed: %w\noutput: %s", name, err, string(output))
	}
	return output, nil
}
