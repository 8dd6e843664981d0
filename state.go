package screendetect

import "github.com/pkg/errors"

// State is a phase of the capture loop
type State int

const (
	// Searching looks up the target process and window
	Searching State = iota
	// Connected has a target and is computing the capture region
	Connected
	// Running captures, detects and renders frames
	Running
	// Reconnecting re-runs discovery after a failure or user request
	Reconnecting
	// Terminated has released its resources and accepts no further events
	Terminated
)

var stateNames = map[State]string{
	Searching:    "searching",
	Connected:    "connected",
	Running:      "running",
	Reconnecting: "reconnecting",
	Terminated:   "terminated",
}

// String returns the state name
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Event drives a transition between states
type Event int

const (
	EventLocated Event = iota
	EventLocateFailed
	EventRegionReady
	EventRegionFailed
	EventFrame
	EventRegionRecomputed
	EventCaptureFailed
	EventTargetLost
	EventQuit
	EventReconnectRequested
	EventReconnected
	EventReconnectFailed
	EventCancelled
)

var eventNames = map[Event]string{
	EventLocated:            "located",
	EventLocateFailed:       "locate-failed",
	EventRegionReady:        "region-ready",
	EventRegionFailed:       "region-failed",
	EventFrame:              "frame",
	EventRegionRecomputed:   "region-recomputed",
	EventCaptureFailed:      "capture-failed",
	EventTargetLost:         "target-lost",
	EventQuit:               "quit",
	EventReconnectRequested: "reconnect-requested",
	EventReconnected:        "reconnected",
	EventReconnectFailed:    "reconnect-failed",
	EventCancelled:          "cancelled",
}

// String returns the event name
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// transitions lists the events each state accepts.  Cancellation is accepted
// by every state except Terminated.
var transitions = map[State]map[Event]State{
	Searching: {
		EventLocated:      Connected,
		EventLocateFailed: Terminated,
		EventCancelled:    Terminated,
	},
	Connected: {
		EventRegionReady:  Running,
		EventRegionFailed: Terminated,
		EventCancelled:    Terminated,
	},
	Running: {
		EventFrame:              Running,
		EventRegionRecomputed:   Running,
		EventRegionFailed:       Reconnecting,
		EventCaptureFailed:      Reconnecting,
		EventReconnectRequested: Reconnecting,
		EventTargetLost:         Terminated,
		EventQuit:               Terminated,
		EventCancelled:          Terminated,
	},
	Reconnecting: {
		EventReconnected:     Running,
		EventReconnectFailed: Terminated,
		EventCancelled:       Terminated,
	},
}

// Next returns the state reached from s on event e.  ErrInvalidTransition is
// returned, along with s unchanged, if s does not accept e.
func Next(s State, e Event) (State, error) {

	if next, ok := transitions[s][e]; ok {
		return next, nil
	}

	return s, errors.Wrapf(ErrInvalidTransition, "%s on %s", s, e)
}
