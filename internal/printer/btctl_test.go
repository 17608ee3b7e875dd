package printer

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeRunner returns canned output and records invocations.
type fakeRunner struct {
	output []byte
	err    error
	cmds   []string
	stdins []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.cmds = append(r.cmds, name+" "+strings.Join(args, " "))
	return r.output, r.err
}

func (r *fakeRunner) RunWithStdin(_ context.Context, input string, name string, args ...string) ([]byte, error) {
	r.cmds = append(r.cmds, name+" "+strings.Join(args, " "))
	r.stdins = append(r.stdins, input)
	return r.output, r.err
}

func newTestControl(runner commandRunner) *BluetoothctlControl {
	cfg := testConfig()
	return &BluetoothctlControl{
		addr:   cfg.DeviceAddress,
		runner: runner,
		cfg:    cfg,
		logger: testLogger(),
	}
}

func TestParseConnected(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want bool
	}{
		{"connected", "Device AA:BB\n\tPaired: yes\n\tConnected: yes\n", true},
		{"disconnected", "Device AA:BB\n\tConnected: no\n", false},
		{"missing field", "Device AA:BB\n\tPaired: yes\n", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseConnected(tt.out); got != tt.want {
				t.Errorf("parseConnected(%q) = %v, want %v", tt.out, got, tt.want)
			}
		})
	}
}

func TestConnectedQueryFailureMeansDisconnected(t *testing.T) {
	ctl := newTestControl(&fakeRunner{err: errors.New("no adapter")})
	if ctl.Connected(context.Background()) {
		t.Error("query failure must report not connected")
	}
}

func TestPairFeedsPIN(t *testing.T) {
	runner := &fakeRunner{output: []byte("Pairing successful")}
	ctl := newTestControl(runner)

	if err := ctl.Pair(context.Background(), "1234"); err != nil {
		t.Fatalf("Pair failed: %v", err)
	}
	if len(runner.stdins) != 1 {
		t.Fatalf("expected one interactive session, got %d", len(runner.stdins))
	}
	script := runner.stdins[0]
	if !strings.Contains(script, "pair AA:BB:CC:DD:EE:FF") {
		t.Errorf("script missing pair command: %q", script)
	}
	if !strings.Contains(script, "\n1234\n") {
		t.Errorf("script missing PIN answer: %q", script)
	}
	if !strings.Contains(script, "trust AA:BB:CC:DD:EE:FF") {
		t.Errorf("script missing trust command: %q", script)
	}
}

func TestPairRejected(t *testing.T) {
	runner := &fakeRunner{output: []byte("Failed to pair: org.bluez.Error.AuthenticationFailed")}
	ctl := newTestControl(runner)

	err := ctl.Pair(context.Background(), "0000")
	if !errors.Is(err, ErrBluetoothCommand) {
		t.Fatalf("expected ErrBluetoothCommand, got %v", err)
	}
}

func TestSimpleVerbs(t *testing.T) {
	runner := &fakeRunner{output: []byte("ok")}
	ctl := newTestControl(runner)
	ctx := context.Background()

	_ = ctl.Disconnect(ctx)
	_ = ctl.Unpair(ctx)
	_ = ctl.PowerOff(ctx)
	_ = ctl.PowerOn(ctx)
	_ = ctl.Connect(ctx)

	want := []string{
		"bluetoothctl disconnect AA:BB:CC:DD:EE:FF",
		"bluetoothctl remove AA:BB:CC:DD:EE:FF",
		"bluetoothctl power off",
		"bluetoothctl power on",
		"bluetoothctl connect AA:BB:CC:DD:EE:FF",
	}
	if len(runner.cmds) != len(want) {
		t.Fatalf("got %d commands, want %d: %v", len(runner.cmds), len(want), runner.cmds)
	}
	for i := range want {
		if runner.cmds[i] != want[i] {
			t.Errorf("command %d: got %q, want %q", i, runner.cmds[i], want[i])
		}
	}
}
