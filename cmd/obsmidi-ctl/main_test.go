package main

import (
	"encoding/json"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args []string
		want Request
	}{
		{[]string{"cc", "0", "64"}, InjectControl{Control: 0, Value: 64}},
		{[]string{"press", "44"}, InjectControl{Control: 44, Value: 127}},
		{[]string{"press", "42", "100"}, InjectControl{Control: 42, Value: 100}},
		{[]string{"release", "44"}, InjectControl{Control: 44, Value: 0}},
		{[]string{"led", "record", "on"}, SetLED{LED: "record", On: true}},
		{[]string{"led", "stream", "off"}, SetLED{LED: "stream", On: false}},
		{[]string{"help"}, nil},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.args)
		if err != nil {
			t.Errorf("parseCommand(%v): %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCommand(%v) = %#v, want %#v", tt.args, got, tt.want)
		}
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"cc", "1"},
		{"cc", "128", "0"},
		{"cc", "1", "-1"},
		{"press"},
		{"press", "x"},
		{"led", "record"},
		{"led", "record", "blink"},
		{"reboot"},
	} {
		if _, err := parseCommand(args); err == nil {
			t.Errorf("parseCommand(%v): expected error", args)
		}
	}
}

func TestMarshalRequest(t *testing.T) {
	data, err := marshalRequest(SetLED{LED: "record", On: true})
	if err != nil {
		t.Fatalf("marshalRequest: %v", err)
	}

	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "set_led" {
		t.Errorf("type = %q, want set_led", env.Type)
	}
	if string(env.Data) != `{"led":"record","on":true}` {
		t.Errorf("data = %s", env.Data)
	}
}
