package printer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// WorkerHandle is one live worker subprocess as seen by the supervisor.
type WorkerHandle interface {
	// Send writes one protocol line to the worker's input channel.
	Send(line string) error
	// Lines streams the worker's output lines; closed when output ends.
	Lines() <-chan string
	// Done is closed when the process has exited.
	Done() <-chan struct{}
	// Kill terminates the process, gracefully first, forcibly on timeout.
	Kill()
}

// Spawner creates worker processes. The supervisor owns at most one handle
// at a time; tests substitute a spawner that counts live instances.
type Spawner interface {
	Spawn(ctx context.Context) (WorkerHandle, error)
}

// CommandSpawner spawns the persistent worker as a subprocess of this
// binary (the hidden print-worker subcommand).
type CommandSpawner struct {
	name   string
	args   []string
	logger *log.Logger
}

// NewCommandSpawner creates a spawner for the given command line.
func NewCommandSpawner(name string, args []string, logger *log.Logger) *CommandSpawner {
	return &CommandSpawner{name: name, args: args, logger: logger}
}

// Spawn starts the worker process and wires up its pipes.
func (s *CommandSpawner) Spawn(ctx context.Context) (WorkerHandle, error) {
	cmd := exec.Command(s.name, s.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	s.logger.Debug("worker process started", "pid", cmd.Process.Pid)

	w := &execWorker{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 16),
		done:   make(chan struct{}),
		logger: s.logger,
	}

	go w.readOutput(stdout)
	go w.drainStderr(stderr)
	go func() {
		err := cmd.Wait()
		s.logger.Debug("worker process exited", "pid", cmd.Process.Pid, "err", err)
		close(w.done)
	}()

	return w, nil
}

type execWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	done   chan struct{}
	logger *log.Logger
	kill   sync.Once
}

func (w *execWorker) readOutput(stdout io.Reader) {
	defer close(w.lines)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		select {
		case w.lines <- scanner.Text():
		case <-w.done:
			return
		}
	}
}

func (w *execWorker) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		w.logger.Debug("worker stderr", "line", scanner.Text())
	}
}

func (w *execWorker) Send(line string) error {
	if _, err := fmt.Fprintln(w.stdin, line); err != nil {
		return fmt.Errorf("write to worker: %w", err)
	}
	return nil
}

func (w *execWorker) Lines() <-chan string { return w.lines }

func (w *execWorker) Done() <-chan struct{} { return w.done }

// Kill closes stdin so the worker can exit on EOF, then force-kills it if it
// has not gone away within a grace period.
func (w *execWorker) Kill() {
	w.kill.Do(func() {
		_ = w.stdin.Close()
		select {
		case <-w.done:
			return
		case <-time.After(2 * time.Second):
		}
		if w.cmd.Process != nil {
			w.logger.Warn("force killing worker", "pid", w.cmd.Process.Pid)
			_ = w.cmd.Process.Kill()
		}
		<-w.done
	})
}
