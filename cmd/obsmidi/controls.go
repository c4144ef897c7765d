package main

import "fmt"

// ControlKind is the fixed behaviour class of a physical control.
type ControlKind int

const (
	Fader  ControlKind = iota // continuous; last value wins
	Button                    // momentary; release ignored, firmest press wins
	Toggle                    // latching; last value wins, on == max
)

func (k ControlKind) String() string {
	switch k {
	case Fader:
		return "fader"
	case Button:
		return "button"
	case Toggle:
		return "toggle"
	default:
		return fmt.Sprintf("ControlKind(%d)", int(k))
	}
}

// ActionKind is the closed set of remote operations a control can be bound to.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionPrevScene
	ActionNextScene
	ActionTransition
	ActionStream
	ActionRecord
	ActionMonitor
	ActionVolume
	ActionSyncOffset
)

// actionNames maps configuration names to action kinds.
var actionNames = map[string]ActionKind{
	"prev_scene":  ActionPrevScene,
	"next_scene":  ActionNextScene,
	"transition":  ActionTransition,
	"stream":      ActionStream,
	"record":      ActionRecord,
	"monitor":     ActionMonitor,
	"volume":      ActionVolume,
	"sync_offset": ActionSyncOffset,
}

// Actions permitted per control kind.
var allowedActions = map[ControlKind][]ActionKind{
	Fader:  {ActionVolume, ActionSyncOffset},
	Button: {ActionPrevScene, ActionNextScene, ActionTransition, ActionStream, ActionRecord, ActionMonitor},
	Toggle: {ActionStream, ActionRecord, ActionMonitor},
}

func (a ActionKind) String() string {
	for name, k := range actionNames {
		if k == a {
			return name
		}
	}
	if a == ActionNone {
		return "none"
	}
	return fmt.Sprintf("ActionKind(%d)", int(a))
}

// needsTarget reports whether the action operates on a named source.
func (a ActionKind) needsTarget() bool {
	switch a {
	case ActionMonitor, ActionVolume, ActionSyncOffset:
		return true
	default:
		return false
	}
}

// lookupAction resolves a configured action name for a control kind.
// ok is false when the name is unknown or not allowed for the kind.
func lookupAction(kind ControlKind, name string) (ActionKind, bool) {
	a, ok := actionNames[name]
	if !ok {
		return ActionNone, false
	}
	for _, allowed := range allowedActions[kind] {
		if a == allowed {
			return a, true
		}
	}
	return ActionNone, false
}

// Control is one registered input on the surface. Immutable after registration.
type Control struct {
	Number uint8
	Kind   ControlKind
	Min    int
	Max    int

	Action ActionKind
	Target string // resolved source name; empty unless Action.needsTarget()

	LED string // logical LED name, optional
}

func (c *Control) bound() bool {
	return c.Action != ActionNone
}
