package montecarlo

import "fmt"

// State is a run's lifecycle stage. A run moves strictly forward through
// Idle, Partitioned, Running, Joined, Aggregated, Done; any failure ends in
// Failed.
type State int32

const (
	StateIdle State = iota
	StatePartitioned
	StateRunning
	StateJoined
	StateAggregated
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StatePartitioned: "partitioned",
	StateRunning:     "running",
	StateJoined:      "joined",
	StateAggregated:  "aggregated",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// next returns the only state reachable from s on success.
func (s State) next() (State, bool) {
	switch s {
	case StateIdle, StatePartitioned, StateRunning, StateJoined, StateAggregated:
		return s + 1, true
	default:
		return s, false
	}
}
