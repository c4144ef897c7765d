package main

import (
	"errors"
	"fmt"
	"log/slog"
)

type ledSender interface {
	Send(control, value uint8) error
}

// LEDs drives surface indicators by logical name (see Registry.LED).
// Set may be called from the obs-websocket read pump and the IPC server
// concurrently; the surface serializes the writes.
type LEDs struct {
	reg    *Registry
	out    ledSender
	logger *slog.Logger
}

func NewLEDs(reg *Registry, out ledSender, logger *slog.Logger) *LEDs {
	return &LEDs{reg: reg, out: out, logger: logger}
}

// Set lights or clears the LED registered under name. Names without an LED
// mapping are ignored.
func (l *LEDs) Set(name string, on bool) error {
	n, ok := l.reg.LED(name)
	if !ok {
		l.logger.Debug("no LED mapped", "led", name)
		return nil
	}
	value := uint8(ledOff)
	if on {
		value = ledOn
	}
	if err := l.out.Send(n, value); err != nil {
		if errors.Is(err, errNoOutput) {
			return nil
		}
		return fmt.Errorf("set LED %s: %w", name, err)
	}
	l.logger.Debug("LED set", "led", name, "control", n, "on", on)
	return nil
}

// obsEventLEDs maps obs-websocket update types to LED states.
var obsEventLEDs = map[string]struct {
	led string
	on  bool
}{
	"StreamStarted":    {ledStream, true},
	"StreamStopped":    {ledStream, false},
	"RecordingStarted": {ledRecord, true},
	"RecordingStopped": {ledRecord, false},
}

// HandleOBSEvent is registered as the obs-websocket event callback.
func (l *LEDs) HandleOBSEvent(ev OBSEvent) {
	s, ok := obsEventLEDs[ev.UpdateType]
	if !ok {
		return
	}
	if err := l.Set(s.led, s.on); err != nil {
		l.logger.Warn("LED update failed", "event", ev.UpdateType, "error", err)
	}
}

type statusQuerier interface {
	StreamingStatus() (StreamingStatus, error)
}

// syncLEDs queries stream/record state once so LEDs match OBS at startup.
func syncLEDs(q statusQuerier, leds *LEDs) error {
	st, err := q.StreamingStatus()
	if err != nil {
		return fmt.Errorf("query initial state: %w", err)
	}
	return errors.Join(
		leds.Set(ledStream, st.Streaming),
		leds.Set(ledRecord, st.Recording),
	)
}
