// Package status tracks partial health reported by independent
// subsystems and projects the single most important entry as the
// externally visible status. Each component owns an Entry; the Pool
// orders entries by severity and tie-break priority and keeps the
// whole set durable across restarts through a store snapshot.
package status

// State is the severity of one status entry.
type State string

const (
	Unknown     State = "unknown"
	Active      State = "active"
	Maintenance State = "maintenance"
	Waiting     State = "waiting"
	Blocked     State = "blocked"
)

// severityRank orders states for projection, most severe first.
var severityRank = map[State]int{
	Blocked:     1,
	Waiting:     2,
	Maintenance: 3,
	Active:      4,
	Unknown:     5,
}

// ParseState maps a persisted severity name back to a State. Anything
// unrecognised degrades to Unknown rather than failing.
func ParseState(s string) State {
	switch State(s) {
	case Active, Maintenance, Waiting, Blocked:
		return State(s)
	default:
		return Unknown
	}
}

// Entry is an atomic status owned by one component. Higher priority
// wins ties within the same severity.
type Entry struct {
	label    string
	priority int
	state    State
	message  string
	neverSet bool
	onUpdate func()
}

func NewEntry(label string, priority int) *Entry {
	return &Entry{
		label:    label,
		priority: priority,
		state:    Unknown,
		neverSet: true,
	}
}

func (e *Entry) Label() string { return e.label }
func (e *Entry) State() State  { return e.state }

// Message is empty for Unknown, which has no meaningful message.
func (e *Entry) Message() string {
	if e.state == Unknown {
		return ""
	}
	return e.message
}

// Set updates the entry and notifies the owning pool so the external
// projection is recomputed. Safe to call before the entry is added to
// a pool.
func (e *Entry) Set(state State, message string) {
	e.state = state
	e.message = message
	e.neverSet = false
	if e.onUpdate != nil {
		e.onUpdate()
	}
}

// sortKey orders entries for projection: severity rank first, then
// caller priority descending.
func (e *Entry) sortKey() (int, int) {
	return severityRank[e.state], -e.priority
}

// Projection is the single externally visible (severity, message)
// summary computed from all registered entries.
type Projection struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}
