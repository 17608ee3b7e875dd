package printer

import (
	"context"
	"encoding/base64"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// testConfig returns a config with delays shrunk far enough that the reset
// sequencer and timeouts run in milliseconds.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DeviceAddress = "AA:BB:CC:DD:EE:FF"
	cfg.DevicePath = "/dev/rfcomm-test"
	cfg.StartupTimeout = 250 * time.Millisecond
	cfg.JobTimeout = 150 * time.Millisecond
	cfg.CommandTimeout = 50 * time.Millisecond
	cfg.PairingTimeout = 100 * time.Millisecond
	cfg.PowerCycleDelay = time.Millisecond
	cfg.ConnectSettle = time.Millisecond
	cfg.NodePollInterval = time.Millisecond
	cfg.NodePollAttempts = 3
	cfg.KeepaliveInterval = 0
	return cfg
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// fakeProbe is a mutable DeviceProbe.
type fakeProbe struct {
	mu        sync.Mutex
	exists    bool
	connected bool
}

func (p *fakeProbe) DeviceExists() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exists
}

func (p *fakeProbe) BluetoothConnected(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakeProbe) set(exists, connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exists = exists
	p.connected = connected
}

// fakeControl records the sequence of Bluetooth operations and can fail any
// of them. onConnect runs on every Connect call, letting tests make the
// device node appear at the right moment.
type fakeControl struct {
	mu        sync.Mutex
	calls     []string
	errs      map[string]error
	connected bool
	onConnect func(connectCount int)
	connects  int
}

func (c *fakeControl) record(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, op)
	if c.errs != nil {
		return c.errs[op]
	}
	return nil
}

func (c *fakeControl) Disconnect(context.Context) error { return c.record("disconnect") }
func (c *fakeControl) Unpair(context.Context) error     { return c.record("unpair") }
func (c *fakeControl) PowerOff(context.Context) error   { return c.record("power off") }
func (c *fakeControl) PowerOn(context.Context) error    { return c.record("power on") }
func (c *fakeControl) Pair(_ context.Context, pin string) error {
	return c.record("pair " + pin)
}

func (c *fakeControl) Connect(context.Context) error {
	c.mu.Lock()
	c.calls = append(c.calls, "connect")
	c.connects++
	n := c.connects
	hook := c.onConnect
	var err error
	if c.errs != nil {
		err = c.errs["connect"]
	}
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return err
}

func (c *fakeControl) Connected(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeControl) sequence() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *fakeControl) count(op string) int {
	n := 0
	for _, call := range c.sequence() {
		if call == op {
			n++
		}
	}
	return n
}

// fakeWorker implements WorkerHandle with scriptable responses.
type fakeWorker struct {
	mu     sync.Mutex
	sent   []string
	lines  chan string
	done   chan struct{}
	killed bool
	once   sync.Once

	// onSend decides how the worker reacts to a job line; nil means echo
	// the default OK acknowledgement.
	onSend func(w *fakeWorker, line string)
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{
		lines: make(chan string, 32),
		done:  make(chan struct{}),
	}
}

func (w *fakeWorker) Send(line string) error {
	w.mu.Lock()
	w.sent = append(w.sent, line)
	handler := w.onSend
	w.mu.Unlock()
	if handler != nil {
		handler(w, line)
	} else {
		ackOK(w, line)
	}
	return nil
}

// ackOK is the well-behaved worker reaction: decode the job and acknowledge
// with the payload length.
func ackOK(w *fakeWorker, line string) {
	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, jobPrefix))
	if err != nil {
		w.emit(errPrefix + "bad job encoding")
		return
	}
	w.emit(okPrefix + strconv.Itoa(len(payload)))
}

func (w *fakeWorker) Lines() <-chan string  { return w.lines }
func (w *fakeWorker) Done() <-chan struct{} { return w.done }

func (w *fakeWorker) Kill() {
	w.once.Do(func() {
		w.mu.Lock()
		w.killed = true
		w.mu.Unlock()
		close(w.done)
	})
}

// exit simulates the process dying on its own.
func (w *fakeWorker) exit() {
	w.once.Do(func() { close(w.done) })
}

func (w *fakeWorker) emit(line string) {
	w.lines <- line
}

func (w *fakeWorker) wasKilled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.killed
}

// fakeSpawner tracks how many workers were spawned and how many are alive
// at once, which is how the single-instance invariant is verified.
type fakeSpawner struct {
	mu      sync.Mutex
	spawned int
	live    int
	maxLive int
	workers []*fakeWorker

	// build customizes the worker for the nth spawn (1-based); nil gives a
	// well-behaved worker that announces readiness immediately.
	build func(n int) *fakeWorker
}

func (s *fakeSpawner) Spawn(context.Context) (WorkerHandle, error) {
	s.mu.Lock()
	s.spawned++
	n := s.spawned
	var w *fakeWorker
	if s.build != nil {
		w = s.build(n)
	} else {
		w = newFakeWorker()
		w.emit(readyLine)
	}
	s.workers = append(s.workers, w)
	s.live++
	if s.live > s.maxLive {
		s.maxLive = s.live
	}
	s.mu.Unlock()

	go func() {
		<-w.done
		s.mu.Lock()
		s.live--
		s.mu.Unlock()
	}()
	return w, nil
}

func (s *fakeSpawner) stats() (spawned, maxLive int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned, s.maxLive
}

func (s *fakeSpawner) worker(n int) *fakeWorker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 || n > len(s.workers) {
		return nil
	}
	return s.workers[n-1]
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
