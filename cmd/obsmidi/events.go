package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// IPC Requests
// ============================================================================
// Requests arrive over the IPC socket as {"type": ..., "data": {...}}.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// IPCRequest is a marker interface for everything the IPC server accepts
type IPCRequest interface {
	ipcMarker()
}

// InjectControl feeds a synthetic control change into the surface's event
// stream, exactly as if the hardware had sent it
type InjectControl struct {
	Control uint8 `json:"control"`
	Value   uint8 `json:"value"`
}

func (InjectControl) ipcMarker() {}

// SetLED lights or clears a logical LED ("stream", "record", ...)
type SetLED struct {
	LED string `json:"led"`
	On  bool   `json:"on"`
}

func (SetLED) ipcMarker() {}

// RequestEnvelope wraps a request with a type discriminator for JSON marshaling
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalRequest deserializes a JSON envelope into a concrete IPCRequest
func UnmarshalRequest(data []byte) (IPCRequest, error) {
	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "control_change":
		var r InjectControl
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal InjectControl: %w", err)
		}
		if r.Control > midiValueMax || r.Value > midiValueMax {
			return nil, fmt.Errorf("control_change out of MIDI range: control=%d value=%d", r.Control, r.Value)
		}
		return r, nil

	case "set_led":
		var r SetLED
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal SetLED: %w", err)
		}
		if r.LED == "" {
			return nil, fmt.Errorf("set_led: led name is empty")
		}
		return r, nil

	default:
		return nil, fmt.Errorf("unknown request type: %q", env.Type)
	}
}

// MarshalRequest serializes an IPCRequest into a JSON envelope
func MarshalRequest(r IPCRequest) ([]byte, error) {
	var env RequestEnvelope

	switch r := r.(type) {
	case InjectControl:
		env.Type = "control_change"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal InjectControl: %w", err)
		}
		env.Data = data

	case SetLED:
		env.Type = "set_led"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal SetLED: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported request type: %T", r)
	}

	return json.Marshal(env)
}
