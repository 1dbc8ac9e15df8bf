package ecs

// IterateMode controls how often an action's text is emitted.
type IterateMode int

const (
	// Once emits the action body exactly one time, unwrapped.
	Once IterateMode = iota
	// Each wraps the action body in a loop that walks an index register
	// over every entity matched by the owning system's query.
	Each
)

// String returns the mode name as it appears in project files.
func (m IterateMode) String() string {
	switch m {
	case Once:
		return "once"
	case Each:
		return "each"
	default:
		return "unknown"
	}
}

// Query selects which of an archetype's components a system or action is
// entitled to see. An empty Include list selects all components. Listen
// and Updates carry front-end intent and do not affect matching.
type Query struct {
	Include []string
	Exclude []string
	Listen  []string
	Updates []string
}

// Selects reports whether a component name passes the include/exclude
// filter.
func (q Query) Selects(name string) bool {
	for _, ex := range q.Exclude {
		if ex == name {
			return false
		}
	}
	if len(q.Include) == 0 {
		return true
	}
	for _, in := range q.Include {
		if in == name {
			return true
		}
	}
	return false
}

// CodeFragment binds a block of instruction text to an event. The text may
// contain macro tokens of the form %{cmd payload} that the generator
// substitutes.
type CodeFragment struct {
	Text    string
	Event   string
	Iterate IterateMode
}

// System reacts to events with one or more code fragments. TempBytes
// reserves that much shared scratch storage while the system's code and
// emitted sub-events are generated. Emits lists sub-events the system
// expands during generation.
type System struct {
	Name      string
	Query     Query
	Actions   []CodeFragment
	TempBytes int
	Emits     []string
}

// ListensTo reports whether the system has at least one action bound to
// the given event.
func (s *System) ListensTo(event string) bool {
	for _, a := range s.Actions {
		if a.Event == event {
			return true
		}
	}
	return false
}
