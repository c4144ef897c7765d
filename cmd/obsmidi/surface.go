package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

var (
	// ErrNoDevice is returned when no MIDI port matches the configured name.
	ErrNoDevice = errors.New("no controller devices found")

	// ErrSurfaceClosed is returned by Receive once the surface is closed.
	ErrSurfaceClosed = errors.New("control surface closed")

	errNoOutput = errors.New("controller has no output port")
)

// Surface is the hardware side of the bridge as seen by the main loop.
type Surface interface {
	// Receive blocks until an event is available or ctx is done.
	Receive(ctx context.Context) (ControlEvent, error)

	// Pending yields events that are already buffered, without blocking.
	Pending() iter.Seq[ControlEvent]

	// Send writes an output (LED) value. Safe for concurrent use.
	Send(control, value uint8) error
}

// ListDevices returns the names of the available MIDI input ports in
// driver enumeration order.
func ListDevices() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// matchDevices keeps the names containing substr, preserving order.
func matchDevices(names []string, substr string) []string {
	var out []string
	for _, n := range names {
		if strings.Contains(n, substr) {
			out = append(out, n)
		}
	}
	return out
}

// MIDISurface is a control surface reached through gomidi.
//
// Control-change messages on the configured channel arrive on the driver's
// callback and are buffered in events. Synthetic events from IPC are pushed
// into the same buffer, so the main loop cannot tell them apart.
type MIDISurface struct {
	name    string
	channel uint8
	logger  *slog.Logger

	in   drivers.In
	out  drivers.Out
	stop func()

	sendMu sync.Mutex
	send   func(midi.Message) error

	events    chan ControlEvent
	done      chan struct{}
	closeOnce sync.Once
}

func newMIDISurface(name string, channel uint8, logger *slog.Logger) *MIDISurface {
	return &MIDISurface{
		name:    name,
		channel: channel,
		logger:  logger,
		events:  make(chan ControlEvent, surfaceEventBuffer),
		done:    make(chan struct{}),
	}
}

// OpenMIDISurface opens the first MIDI port whose name contains substr.
// Several matches produce a warning; none is ErrNoDevice.
func OpenMIDISurface(substr string, channel uint8, logger *slog.Logger) (*MIDISurface, error) {
	matches := matchDevices(ListDevices(), substr)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w (name %q)", ErrNoDevice, substr)
	}
	if len(matches) > 1 {
		logger.Warn("multiple possible controller devices found; selecting first", "devices", matches)
	}
	device := matches[0]

	s := newMIDISurface(device, channel, logger)

	for _, in := range midi.GetInPorts() {
		if in.String() == device {
			s.in = in
			break
		}
	}
	if s.in == nil {
		return nil, fmt.Errorf("%w (input %q vanished)", ErrNoDevice, device)
	}
	for _, out := range midi.GetOutPorts() {
		if out.String() == device || (s.out == nil && strings.Contains(out.String(), substr)) {
			s.out = out
		}
	}

	stop, err := midi.ListenTo(s.in, s.handleMessage)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", device, err)
	}
	s.stop = stop

	if s.out != nil {
		send, err := midi.SendTo(s.out)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open output %s: %w", s.out.String(), err)
		}
		s.send = send
	} else {
		logger.Warn("no MIDI output port for controller; LEDs disabled", "device", device)
	}

	logger.Info("controller opened", "device", device, "channel", channel)
	return s, nil
}

// Name returns the selected device name.
func (s *MIDISurface) Name() string {
	return s.name
}

// handleMessage is the driver callback. Only control changes on our channel
// become events.
func (s *MIDISurface) handleMessage(msg midi.Message, _ int32) {
	var ch, cc, val uint8
	if !msg.GetControlChange(&ch, &cc, &val) {
		return
	}
	if ch != s.channel {
		return
	}
	s.Inject(ControlEvent{Control: cc, Value: val})
}

// Inject queues an event as if it came from the hardware. It blocks while
// the buffer is full and returns false once the surface is closed.
func (s *MIDISurface) Inject(ev ControlEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *MIDISurface) Receive(ctx context.Context) (ControlEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-ctx.Done():
		return ControlEvent{}, ctx.Err()
	case <-s.done:
		return ControlEvent{}, ErrSurfaceClosed
	}
}

func (s *MIDISurface) Pending() iter.Seq[ControlEvent] {
	return func(yield func(ControlEvent) bool) {
		for {
			select {
			case ev := <-s.events:
				if !yield(ev) {
					return
				}
			default:
				return
			}
		}
	}
}

func (s *MIDISurface) Send(control, value uint8) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.send == nil {
		return errNoOutput
	}
	if err := s.send(midi.ControlChange(s.channel, control, value)); err != nil {
		return fmt.Errorf("send control %d: %w", control, err)
	}
	return nil
}

// Close stops listening and closes the ports. Safe to call more than once.
func (s *MIDISurface) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
		if s.in != nil {
			err = errors.Join(err, s.in.Close())
		}
		if s.out != nil {
			err = errors.Join(err, s.out.Close())
		}
	})
	return err
}
