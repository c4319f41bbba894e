package domain

// State is the flat numeric observation emitted on every reset and step.
// Integer-valued fields are carried as float64.
type State []float64

// Clone returns an independent copy of s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Action is a discrete action id.
type Action int

// Bounds is a closed interval [Min, Max] for one state dimension.
type Bounds struct {
	Min float64
	Max float64
}

// Spec is static metadata external representations use to size themselves
// without simulating.
type Spec struct {
	StateDims      int
	Limits         []Bounds
	ContinuousDims []int
	ActionCount    int
	EpisodeCap     int
	Discount       float64
}

// Snapshot is a read-only view handed to observers after each step.
type Snapshot struct {
	Domain     string
	State      State
	LastAction Action
	HasAction  bool
	Steps      int
	Terminal   bool
}

type Domain interface {
	Name() string
	Spec() Spec
	Reset() State
	LegalActions(s State) []Action
	Step(a Action) (reward float64, next State, terminal bool, err error)
	IsTerminal(s State) bool
	Snapshot() Snapshot
}

// StateSetter is implemented by domains that can resume from an arbitrary
// valid state instead of their start distribution.
type StateSetter interface {
	SetState(s State) error
}

// ContainsAction reports whether a is in legal.
func ContainsAction(legal []Action, a Action) bool {
	for _, candidate := range legal {
		if candidate == a {
			return true
		}
	}
	return false
}

// FullRange returns the unconditional action set {0, ..., n-1}.
func FullRange(n int) []Action {
	out := make([]Action, n)
	for i := range out {
		out[i] = Action(i)
	}
	return out
}
