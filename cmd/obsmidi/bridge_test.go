package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startBridge(t *testing.T, surface Surface, remote Remote) (context.CancelFunc, <-chan error) {
	t.Helper()
	reg := mustRegistry(t, dispatchConfig)
	bridge := NewBridge(surface, reg, remote, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- bridge.Run(ctx)
	}()
	return cancel, errCh
}

func waitRun(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestBridge_CancelReturnsNil(t *testing.T) {
	cancel, errCh := startBridge(t, newFakeSurface(), &fakeRemote{})
	cancel()

	if err := waitRun(t, errCh); err != nil {
		t.Errorf("Run returned %v after cancel, want nil", err)
	}
}

func TestBridge_CoalescesEachBatch(t *testing.T) {
	surface := newFakeSurface()
	remote := &fakeRemote{}
	cancel, errCh := startBridge(t, surface, remote)
	defer cancel()

	// A fader sweep plus a double press arrive in one batch
	surface.batches <- []ControlEvent{
		{Control: 0, Value: 10},
		{Control: 44, Value: 127},
		{Control: 0, Value: 50},
		{Control: 44, Value: 0},
		{Control: 44, Value: 127},
		{Control: 0, Value: 127},
	}
	waitFor(t, func() bool { return len(remote.Calls()) >= 2 })

	// Next batch is dispatched separately
	surface.batches <- []ControlEvent{{Control: 0, Value: 0}}
	waitFor(t, func() bool { return len(remote.Calls()) >= 3 })

	cancel()
	if err := waitRun(t, errCh); err != nil {
		t.Fatalf("Run: %v", err)
	}

	calls := remote.Calls()
	want := []remoteCall{
		{Method: "SetVolume", Source: "Mic", Value: 1},
		{Method: "NextScene"},
		{Method: "SetVolume", Source: "Mic", Value: 0},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v, want %+v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestBridge_RemoteErrorsDoNotStopLoop(t *testing.T) {
	surface := newFakeSurface()
	remote := &fakeRemote{failOn: map[string]bool{"Transition": true}}
	cancel, errCh := startBridge(t, surface, remote)
	defer cancel()

	surface.batches <- []ControlEvent{{Control: 42, Value: 127}}
	surface.batches <- []ControlEvent{{Control: 43, Value: 127}}
	waitFor(t, func() bool { return len(remote.Calls()) >= 2 })

	cancel()
	if err := waitRun(t, errCh); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls := remote.Calls(); calls[1].Method != "PrevScene" {
		t.Errorf("calls = %+v, want Transition then PrevScene", calls)
	}
}

func TestBridge_SurfaceClosed(t *testing.T) {
	surface := newFakeSurface()
	_, errCh := startBridge(t, surface, &fakeRemote{})

	close(surface.batches)

	if err := waitRun(t, errCh); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Run returned %v, want ErrSurfaceClosed", err)
	}
}
