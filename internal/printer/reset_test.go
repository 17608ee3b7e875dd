package printer

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestResetFullSequence(t *testing.T) {
	cfg := testConfig()
	probe := &fakeProbe{}
	control := &fakeControl{
		onConnect: func(int) { probe.set(true, true) },
	}
	r := NewResetSequencer(cfg, control, probe, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"disconnect", "unpair", "power off", "power on", "pair 0000", "connect"}
	if got := control.sequence(); !reflect.DeepEqual(got, want) {
		t.Errorf("sequence mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestResetExtraCycleWhenNodeSlow(t *testing.T) {
	cfg := testConfig()
	probe := &fakeProbe{}
	control := &fakeControl{}
	control.onConnect = func(n int) {
		// Node only appears on the second connect.
		if n >= 2 {
			probe.set(true, true)
		}
	}
	r := NewResetSequencer(cfg, control, probe, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := control.count("connect"); got != 2 {
		t.Errorf("expected 2 connects (extra cycle), got %d", got)
	}
	if got := control.count("disconnect"); got != 2 {
		t.Errorf("expected 2 disconnects (extra cycle), got %d", got)
	}
}

func TestResetDeviceNeverAppears(t *testing.T) {
	cfg := testConfig()
	probe := &fakeProbe{} // node never appears
	control := &fakeControl{}
	r := NewResetSequencer(cfg, control, probe, testLogger())

	err := r.Run(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestResetSwallowsIntermediateFailures(t *testing.T) {
	cfg := testConfig()
	probe := &fakeProbe{}
	stepErr := errors.New("boom")
	control := &fakeControl{
		errs: map[string]error{
			"disconnect": stepErr,
			"unpair":     stepErr,
			"power off":  stepErr,
			"power on":   stepErr,
			"pair 0000":  stepErr,
			"connect":    stepErr,
		},
		onConnect: func(int) { probe.set(true, false) },
	}
	r := NewResetSequencer(cfg, control, probe, testLogger())

	// Every individual step failing is not actionable as long as the node
	// shows up in the end.
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed despite node appearing: %v", err)
	}
}

func TestResetHonorsContextCancellation(t *testing.T) {
	cfg := testConfig()
	probe := &fakeProbe{}
	r := NewResetSequencer(cfg, &fakeControl{}, probe, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReconnectIsLightweight(t *testing.T) {
	cfg := testConfig()
	control := &fakeControl{}
	r := NewResetSequencer(cfg, control, &fakeProbe{}, testLogger())

	if err := r.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}
	want := []string{"connect"}
	if got := control.sequence(); !reflect.DeepEqual(got, want) {
		t.Errorf("reconnect should only connect, got %v", got)
	}
}
