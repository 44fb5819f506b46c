package sim

import "fmt"

// State is the lifecycle state of a run.
type State uint8

const (
	Ready    State = iota // Validated, no population yet
	Running               // Generation loop active
	Extinct               // Population reached zero; terminal
	Complete              // Generation limit reached; terminal
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Extinct:
		return "EXTINCT"
	case Complete:
		return "COMPLETE"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Terminal reports whether no further generations can run.
func (s State) Terminal() bool {
	return s == Extinct || s == Complete
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
