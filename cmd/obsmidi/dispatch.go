package main

import (
	"errors"
	"fmt"
	"log/slog"
)

// Remote is the set of OBS operations controls can drive.
// This allows for mocking in tests.
type Remote interface {
	PrevScene() error
	NextScene() error
	Transition() error

	ToggleStreaming() error
	SetStreaming(on bool) error
	ToggleRecording() error
	SetRecording(on bool) error

	ToggleMonitor(source string) error
	SetMonitor(source string, on bool) error

	// volume and position are normalised to [0, 1]
	SetVolume(source string, volume float64) error
	SetSyncOffset(source string, position float64) error
}

// Dispatch drains q in insertion order and invokes the action bound to each
// pending control. Controls without an action are skipped.
//
// A failing action does not stop the batch; failures are joined into the
// returned error. The queue is always empty when Dispatch returns.
func Dispatch(q *PendingQueue, reg *Registry, remote Remote, logger *slog.Logger) error {
	defer q.Clear()

	var errs []error
	q.each(func(n uint8, v int) {
		c, ok := reg.Lookup(n)
		if !ok || !c.bound() {
			return
		}
		logger.Debug("dispatch", "control", n, "value", v, "kind", c.Kind.String(), "action", c.Action.String())
		if err := invoke(remote, c, v); err != nil {
			logger.Error("action failed", "control", n, "action", c.Action.String(), "target", c.Target, "error", err)
			errs = append(errs, fmt.Errorf("control %d (%s): %w", n, c.Action, err))
		}
	})
	return errors.Join(errs...)
}

// invoke performs exactly one remote call for a coalesced raw value.
func invoke(remote Remote, c *Control, v int) error {
	switch c.Kind {
	case Fader:
		scaled := scaleFader(c, v)
		switch c.Action {
		case ActionVolume:
			return remote.SetVolume(c.Target, scaled)
		case ActionSyncOffset:
			return remote.SetSyncOffset(c.Target, scaled)
		}

	case Toggle:
		on := v == c.Max
		switch c.Action {
		case ActionStream:
			return remote.SetStreaming(on)
		case ActionRecord:
			return remote.SetRecording(on)
		case ActionMonitor:
			return remote.SetMonitor(c.Target, on)
		}

	case Button:
		switch c.Action {
		case ActionPrevScene:
			return remote.PrevScene()
		case ActionNextScene:
			return remote.NextScene()
		case ActionTransition:
			return remote.Transition()
		case ActionStream:
			return remote.ToggleStreaming()
		case ActionRecord:
			return remote.ToggleRecording()
		case ActionMonitor:
			return remote.ToggleMonitor(c.Target)
		}
	}
	return fmt.Errorf("action %s not supported on a %s", c.Action, c.Kind)
}

// scaleFader maps a raw value linearly from [Min, Max] to [0, 1].
// Min != Max is guaranteed by the registry.
func scaleFader(c *Control, v int) float64 {
	return float64(v-c.Min) / float64(c.Max-c.Min)
}
