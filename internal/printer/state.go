package printer

// State is a step of a single print call.
type State int

// Print call states, in order. Any state before Writing may jump straight to
// Closing on failure; Closing always ends in Done.
const (
	StateIdle State = iota
	StateResolvingSelection
	StateCheckingPermission
	StateConnecting
	StateWriting
	StateClosing
	StateDone
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateResolvingSelection: "resolving-selection",
	StateCheckingPermission: "checking-permission",
	StateConnecting:         "connecting",
	StateWriting:            "writing",
	StateClosing:            "closing",
	StateDone:               "done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
