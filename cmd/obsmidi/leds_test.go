package main

import (
	"errors"
	"slices"
	"testing"
)

const ledConfig = `
name: x
buttons:
  - control: 45
    action: record
    led: record
toggles:
  - control: 41
    action: stream
    led: stream
    led_control: 60
`

type fakeStatus struct {
	status StreamingStatus
	err    error
}

func (f fakeStatus) StreamingStatus() (StreamingStatus, error) {
	return f.status, f.err
}

type failingSender struct{ err error }

func (f failingSender) Send(uint8, uint8) error { return f.err }

func TestLEDs_HandleOBSEvent(t *testing.T) {
	reg := mustRegistry(t, ledConfig)
	surface := newFakeSurface()
	leds := NewLEDs(reg, surface, testLogger())

	for _, ev := range []string{"StreamStarted", "RecordingStarted", "SwitchScenes", "RecordingStopped", "StreamStopped"} {
		leds.HandleOBSEvent(OBSEvent{UpdateType: ev})
	}

	want := [][2]uint8{{60, 127}, {45, 127}, {45, 0}, {60, 0}}
	if got := surface.Sent(); !slices.Equal(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}
}

func TestLEDs_UnmappedNameIgnored(t *testing.T) {
	reg := mustRegistry(t, "name: x\n")
	surface := newFakeSurface()
	leds := NewLEDs(reg, surface, testLogger())

	if err := leds.Set(ledStream, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := surface.Sent(); len(got) != 0 {
		t.Errorf("sent = %v, want nothing", got)
	}
}

func TestLEDs_SendErrors(t *testing.T) {
	reg := mustRegistry(t, ledConfig)

	// A surface without an output port is not an error
	leds := NewLEDs(reg, failingSender{errNoOutput}, testLogger())
	if err := leds.Set(ledRecord, true); err != nil {
		t.Errorf("Set without output = %v, want nil", err)
	}

	boom := errors.New("boom")
	leds = NewLEDs(reg, failingSender{boom}, testLogger())
	if err := leds.Set(ledRecord, true); !errors.Is(err, boom) {
		t.Errorf("Set = %v, want wrapped boom", err)
	}
}

func TestSyncLEDs(t *testing.T) {
	reg := mustRegistry(t, ledConfig)
	surface := newFakeSurface()
	leds := NewLEDs(reg, surface, testLogger())

	if err := syncLEDs(fakeStatus{status: StreamingStatus{Streaming: true}}, leds); err != nil {
		t.Fatalf("syncLEDs: %v", err)
	}
	want := [][2]uint8{{60, 127}, {45, 0}}
	if got := surface.Sent(); !slices.Equal(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}

	if err := syncLEDs(fakeStatus{err: errors.New("offline")}, leds); err == nil {
		t.Error("expected error when status query fails")
	}
}
