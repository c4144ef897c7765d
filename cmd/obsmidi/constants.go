package main

// MIDI control-change value range
const (
	midiValueMin = 0
	midiValueMax = 127
)

// LED output values
const (
	ledOn  = 127
	ledOff = 0
)

// Logical LED names pushed from OBS state
const (
	ledStream = "stream"
	ledRecord = "record"
)

const (
	defaultConfigPath = "config.yaml"

	defaultOBSHost      = "localhost"
	defaultOBSPort      = 4444
	defaultOBSTimeoutMS = 2000 // Timeout for a single obs-websocket response (ms)

	defaultIPCSocketPath = "/tmp/obsmidi.sock"

	// Surface event buffer; the rtmidi callback blocks when it is full
	surfaceEventBuffer = 256

	// Sync offset range in nanoseconds; a fader maps [0,1] to [-range, +range]
	syncOffsetRangeNS = 1000 * 1e6

	// obs-websocket audio monitor types
	monitorTypeNone      = "none"
	monitorTypeAndOutput = "monitorAndOutput"
)
