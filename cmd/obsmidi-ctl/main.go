package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// obsmidi-ctl - Command-line IPC Client
// ============================================================================
// This tool drives a running obsmidi daemon via IPC, without the controller.
// Injected control changes go through the same coalescing and dispatch as
// hardware input.
//
// Usage:
//   obsmidi-ctl cc 0 64
//   obsmidi-ctl press 44
//   obsmidi-ctl release 44
//   obsmidi-ctl led record on
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/obsmidi.sock)
// ============================================================================

// Request types (duplicated from the daemon for a standalone binary)
type Request interface{}

type InjectControl struct {
	Control uint8 `json:"control"`
	Value   uint8 `json:"value"`
}

type SetLED struct {
	LED string `json:"led"`
	On  bool   `json:"on"`
}

// RequestEnvelope wraps requests for JSON
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/obsmidi.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	req, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}
	if req == nil {
		printUsage()
		os.Exit(0)
	}

	if err := sendRequest(socketPath, req); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

// parseCommand turns command-line arguments into a request. A nil request
// with a nil error means help was asked for.
func parseCommand(args []string) (Request, error) {
	switch args[0] {
	case "cc", "control":
		if len(args) < 3 {
			return nil, fmt.Errorf("cc requires a control number and a value")
		}
		control, err := parseMIDIValue("control", args[1])
		if err != nil {
			return nil, err
		}
		value, err := parseMIDIValue("value", args[2])
		if err != nil {
			return nil, err
		}
		return InjectControl{Control: control, Value: value}, nil

	case "press", "release":
		if len(args) < 2 {
			return nil, fmt.Errorf("%s requires a control number", args[0])
		}
		control, err := parseMIDIValue("control", args[1])
		if err != nil {
			return nil, err
		}
		value := uint8(127)
		if args[0] == "release" {
			value = 0
		}
		if len(args) > 2 {
			if value, err = parseMIDIValue("value", args[2]); err != nil {
				return nil, err
			}
		}
		return InjectControl{Control: control, Value: value}, nil

	case "led":
		if len(args) < 3 {
			return nil, fmt.Errorf("led requires a name and on|off")
		}
		switch args[2] {
		case "on":
			return SetLED{LED: args[1], On: true}, nil
		case "off":
			return SetLED{LED: args[1], On: false}, nil
		default:
			return nil, fmt.Errorf("led state must be on or off, got %q", args[2])
		}

	case "help", "-h", "--help":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func parseMIDIValue(what, s string) (uint8, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 127 {
		return 0, fmt.Errorf("invalid %s %q (must be 0-127)", what, s)
	}
	return uint8(n), nil
}

func sendRequest(socketPath string, req Request) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalRequest(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func marshalRequest(req Request) ([]byte, error) {
	var env RequestEnvelope

	switch r := req.(type) {
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
		return nil, fmt.Errorf("unknown request type: %T", req)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `obsmidi-ctl - Control the obsmidi daemon via IPC

Usage:
  obsmidi-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/obsmidi.sock)

Commands:
  cc, control <n> <value>   Inject a control change (0-127 each)
  press <n> [value]         Inject a button press (default value 127)
  release <n> [value]       Inject a button release (default value 0)
  led <name> on|off         Set a logical LED (e.g. stream, record)
  help, -h, --help          Show this help message

Examples:
  obsmidi-ctl cc 0 64
  obsmidi-ctl press 44
  obsmidi-ctl -socket /run/obsmidi.sock led record on
`)
}
