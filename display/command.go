package display

// Command is an action requested from the keyboard
type Command int

const (
	// None means no key or an unbound key was pressed
	None Command = iota
	// Quit ends the session
	Quit
	// Save writes the raw frame to a numbered file
	Save
	// ToggleLabels switches label text on or off
	ToggleLabels
	// Reconnect re-runs target discovery
	Reconnect
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case Quit:
		return "quit"
	case Save:
		return "save"
	case ToggleLabels:
		return "toggle-labels"
	case Reconnect:
		return "reconnect"
	default:
		return "none"
	}
}

// ParseKey maps a key code returned by PollKey to a Command
func ParseKey(key int) Command {

	if key < 0 {
		return None
	}

	switch key & 0xff {
	case 'q':
		return Quit
	case 's':
		return Save
	case 'c':
		return ToggleLabels
	case 'r':
		return Reconnect
	}

	return None
}

// KeyHelp describes the key bindings
const KeyHelp = "q: quit, s: save screenshot, c: toggle labels, r: reconnect"
