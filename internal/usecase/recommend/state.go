package recommend

import "time"

// State is the recommender lifecycle stage.
type State int32

// Lifecycle: Uninitialized -> Indexing -> Ready, and Ready -> Indexing on every rebuild.
const (
	StateUninitialized State = iota
	StateIndexing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the service.
type Status struct {
	State State
	// Ready reports whether queries can be answered, which stays true while
	// a rebuild runs over an earlier index.
	Ready        bool
	Size         int
	LastBuiltAt  time.Time
	LastDuration time.Duration
	LastError    string
}
