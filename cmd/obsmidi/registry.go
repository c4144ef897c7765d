package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
)

// ConfigError reports a control entry that cannot be registered.
type ConfigError struct {
	Field string // e.g. "buttons[2].source"
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

// Registry holds the control table and the LED map built from the config.
// It is read-only once NewRegistry returns.
type Registry struct {
	controls map[uint8]*Control
	leds     map[string]uint8

	sources map[int]string
	strict  bool
	logger  *slog.Logger
}

// NewRegistry registers every fader, button and toggle in cfg.
//
// Unknown or disallowed action names are ignored with a warning unless
// cfg.Strict is set, in which case they are a ConfigError. Source references
// that cannot be resolved are always a ConfigError.
func NewRegistry(cfg *Config, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		controls: make(map[uint8]*Control),
		leds:     make(map[string]uint8),
		sources:  cfg.Sources,
		strict:   cfg.Strict,
		logger:   logger,
	}

	channels := make([]int, 0, len(cfg.Sources))
	for ch := range cfg.Sources {
		channels = append(channels, ch)
	}
	slices.Sort(channels)
	for _, ch := range channels {
		logger.Info("channel assignment", "channel", ch, "source", cfg.Sources[ch])
	}

	for i, fc := range cfg.Faders {
		if err := r.addFader(fmt.Sprintf("faders[%d]", i), fc); err != nil {
			return nil, err
		}
	}
	for i, sc := range cfg.Buttons {
		if err := r.addSwitch(fmt.Sprintf("buttons[%d]", i), Button, sc); err != nil {
			return nil, err
		}
	}
	for i, sc := range cfg.Toggles {
		if err := r.addSwitch(fmt.Sprintf("toggles[%d]", i), Toggle, sc); err != nil {
			return nil, err
		}
	}

	logger.Debug("registry built", "controls", len(r.controls), "leds", len(r.leds))
	return r, nil
}

// Lookup returns the control registered under number n.
func (r *Registry) Lookup(n uint8) (*Control, bool) {
	c, ok := r.controls[n]
	return c, ok
}

// LED returns the physical LED number for a logical LED name.
func (r *Registry) LED(name string) (uint8, bool) {
	n, ok := r.leds[name]
	return n, ok
}

func (r *Registry) addFader(field string, fc FaderConfig) error {
	num, err := controlNumber(field+".control", fc.Control)
	if err != nil {
		return err
	}
	c := &Control{
		Number: num,
		Kind:   Fader,
		Min:    valueOr(fc.MinValue, midiValueMin),
		Max:    valueOr(fc.MaxValue, midiValueMax),
	}
	if c.Min == c.Max {
		return &ConfigError{Field: field, Msg: "min_value and max_value must differ"}
	}
	if err := r.bind(field, c, fc.Action, fc.Source); err != nil {
		return err
	}
	r.register(field, c)
	return nil
}

func (r *Registry) addSwitch(field string, kind ControlKind, sc SwitchConfig) error {
	num, err := controlNumber(field+".control", sc.Control)
	if err != nil {
		return err
	}
	c := &Control{
		Number: num,
		Kind:   kind,
		Min:    valueOr(sc.OffValue, midiValueMin),
		Max:    valueOr(sc.OnValue, midiValueMax),
	}
	if c.Min == c.Max {
		return &ConfigError{Field: field, Msg: "off_value and on_value must differ"}
	}
	if err := r.bind(field, c, sc.Action, sc.Source); err != nil {
		return err
	}

	if sc.LED != "" {
		led := num
		if sc.LEDControl != nil {
			if led, err = controlNumber(field+".led_control", sc.LEDControl); err != nil {
				return err
			}
		}
		if prev, dup := r.leds[sc.LED]; dup {
			r.logger.Warn("LED name reassigned", "led", sc.LED, "previous", prev, "now", led)
		}
		c.LED = sc.LED
		r.leds[sc.LED] = led
	}

	r.register(field, c)
	return nil
}

// bind resolves the action name and source reference onto c.
func (r *Registry) bind(field string, c *Control, actionName, source string) error {
	if actionName == "" {
		return nil
	}
	action, ok := lookupAction(c.Kind, actionName)
	if !ok {
		if r.strict {
			return &ConfigError{Field: field + ".action", Msg: fmt.Sprintf("unknown %s action %q", c.Kind, actionName)}
		}
		r.logger.Warn("ignoring unknown action", "field", field, "kind", c.Kind.String(), "action", actionName)
		return nil
	}

	var target string
	if source != "" {
		name, ok := resolveSource(r.sources, source)
		if !ok {
			return &ConfigError{Field: field + ".source", Msg: fmt.Sprintf("unknown source %q", source)}
		}
		target = name
	}

	if action.needsTarget() {
		if target == "" {
			return &ConfigError{Field: field + ".source", Msg: fmt.Sprintf("action %q requires a source", actionName)}
		}
		c.Target = target
	} else if target != "" {
		// A control is either target-bound or zero-argument, never both
		r.logger.Warn("ignoring source for action without target", "field", field, "action", actionName, "source", target)
	}
	c.Action = action
	return nil
}

func (r *Registry) register(field string, c *Control) {
	if prev, dup := r.controls[c.Number]; dup {
		r.logger.Warn("control redefined", "field", field, "control", c.Number, "previous_kind", prev.Kind.String())
	}
	r.controls[c.Number] = c
	r.logger.Debug("control registered",
		"control", c.Number,
		"kind", c.Kind.String(),
		"min", c.Min,
		"max", c.Max,
		"action", c.Action.String(),
		"target", c.Target,
		"led", c.LED)
}

// resolveSource accepts either a channel id from the sources table or a
// source name that appears in it.
func resolveSource(sources map[int]string, ref string) (string, bool) {
	if ch, err := strconv.Atoi(ref); err == nil {
		if name, ok := sources[ch]; ok {
			return name, true
		}
	}
	for _, name := range sources {
		if name == ref {
			return name, true
		}
	}
	return "", false
}

func controlNumber(field string, v *int) (uint8, error) {
	if v == nil {
		return 0, &ConfigError{Field: field, Msg: "is required"}
	}
	if *v < midiValueMin || *v > midiValueMax {
		return 0, &ConfigError{Field: field, Msg: fmt.Sprintf("must be between %d and %d, got %d", midiValueMin, midiValueMax, *v)}
	}
	return uint8(*v), nil
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
