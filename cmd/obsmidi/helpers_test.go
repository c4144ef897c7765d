package main

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// mustRegistry builds a registry from YAML or fails the test.
func mustRegistry(t *testing.T, yamlDoc string) *Registry {
	t.Helper()
	cfg, err := parseConfig([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	reg, err := NewRegistry(&cfg, testLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

// remoteCall records one invocation on fakeRemote.
type remoteCall struct {
	Method string
	Source string
	Value  float64
	On     bool
}

// fakeRemote is a test double for OBSClient
type fakeRemote struct {
	mu    sync.Mutex
	calls []remoteCall

	// failOn makes the named method return an error
	failOn map[string]bool
}

func (f *fakeRemote) record(c remoteCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.failOn[c.Method] {
		return errors.New(c.Method + " failed")
	}
	return nil
}

func (f *fakeRemote) Calls() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) PrevScene() error       { return f.record(remoteCall{Method: "PrevScene"}) }
func (f *fakeRemote) NextScene() error       { return f.record(remoteCall{Method: "NextScene"}) }
func (f *fakeRemote) Transition() error      { return f.record(remoteCall{Method: "Transition"}) }
func (f *fakeRemote) ToggleStreaming() error { return f.record(remoteCall{Method: "ToggleStreaming"}) }
func (f *fakeRemote) ToggleRecording() error { return f.record(remoteCall{Method: "ToggleRecording"}) }
func (f *fakeRemote) SetStreaming(on bool) error {
	return f.record(remoteCall{Method: "SetStreaming", On: on})
}
func (f *fakeRemote) SetRecording(on bool) error {
	return f.record(remoteCall{Method: "SetRecording", On: on})
}
func (f *fakeRemote) ToggleMonitor(source string) error {
	return f.record(remoteCall{Method: "ToggleMonitor", Source: source})
}
func (f *fakeRemote) SetMonitor(source string, on bool) error {
	return f.record(remoteCall{Method: "SetMonitor", Source: source, On: on})
}
func (f *fakeRemote) SetVolume(source string, volume float64) error {
	return f.record(remoteCall{Method: "SetVolume", Source: source, Value: volume})
}
func (f *fakeRemote) SetSyncOffset(source string, position float64) error {
	return f.record(remoteCall{Method: "SetSyncOffset", Source: source, Value: position})
}

// fakeSurface feeds scripted batches to the main loop. Each batch is
// delivered as one blocking Receive followed by a Pending drain.
type fakeSurface struct {
	batches chan []ControlEvent
	pending []ControlEvent

	mu   sync.Mutex
	sent [][2]uint8
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{batches: make(chan []ControlEvent, 16)}
}

func (s *fakeSurface) Receive(ctx context.Context) (ControlEvent, error) {
	select {
	case b, ok := <-s.batches:
		if !ok {
			return ControlEvent{}, ErrSurfaceClosed
		}
		s.pending = b[1:]
		return b[0], nil
	case <-ctx.Done():
		return ControlEvent{}, ctx.Err()
	}
}

func (s *fakeSurface) Pending() iter.Seq[ControlEvent] {
	return func(yield func(ControlEvent) bool) {
		for len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			if !yield(ev) {
				return
			}
		}
	}
}

func (s *fakeSurface) Send(control, value uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, [2]uint8{control, value})
	return nil
}

func (s *fakeSurface) Sent() [][2]uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]uint8(nil), s.sent...)
}
