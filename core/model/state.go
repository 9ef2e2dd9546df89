package model

// State is the dispatch mode of a taxi.
type State int

const (
	StateSeeking State = iota
	StateCarrying
	StateToGas
	StateAtGas
	StateToBase
	StateAtBase
	// StateStalled marks a taxi standing on a node without outgoing edges.
	StateStalled
)

var stateNames = map[State]string{
	StateSeeking:  "SEEKING",
	StateCarrying: "CARRYING",
	StateToGas:    "TO_GAS",
	StateAtGas:    "AT_GAS",
	StateToBase:   "TO_BASE",
	StateAtBase:   "AT_BASE",
	StateStalled:  "STALLED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name; unknown names map to SEEKING.
func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	*s = StateSeeking
	return nil
}

// States lists every dispatch state in declaration order.
func States() []State {
	return []State{StateSeeking, StateCarrying, StateToGas, StateAtGas, StateToBase, StateAtBase, StateStalled}
}
