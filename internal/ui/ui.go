package ui

// State is the assistant's externally visible condition. Transitions are
// emitted as side effects of wake-gate and protocol events.
type State int

const (
	StateLoadStart State = iota
	StateLoadInternet
	StateLoadDisplay
	StateLoadAudio
	StateSleeping
	StateTalking
	StateListening
	StateToolCalling
)

func (s State) String() string {
	switch s {
	case StateLoadStart:
		return "LOAD_START"
	case StateLoadInternet:
		return "LOAD_INTERNET"
	case StateLoadDisplay:
		return "LOAD_DISPLAY"
	case StateLoadAudio:
		return "LOAD_AUDIO"
	case StateSleeping:
		return "SLEEPING"
	case StateTalking:
		return "TALKING"
	case StateListening:
		return "LISTENING"
	case StateToolCalling:
		return "TOOL_CALLING"
	default:
		return "UNKNOWN"
	}
}

// UI is the presentation collaborator. Implementations must keep UpdateState
// and SetTimerText fast; they are called from the session's receive loop.
type UI interface {
	UpdateState(state State, reason string)
	State() State
	SetTimerText(text string)

	// CancelPressed is polled during local audio playback to allow the user
	// to cut a playing alarm short.
	CancelPressed() bool
	ShutdownPressed() bool

	Shutdown()
}
