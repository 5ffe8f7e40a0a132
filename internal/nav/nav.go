// Package nav abstracts the navigation query state that mirrors the set
// of loaded forces.
//
// The controller reads the initial parameters exactly once, captured
// before any other code can mutate them, and from then on only replaces
// the current state. Replacing never creates a history entry: the URL is
// a mirror of engine state, not a navigation event.
package nav

import "net/url"

// Navigator owns the navigation query state.
type Navigator interface {
	// Initial returns the query parameters as they were when the
	// navigator was constructed.
	Initial() url.Values
	// Replace overwrites the current query state in place.
	Replace(values url.Values)
	// Current returns the live query state.
	Current() url.Values
}

// Memory is an in-process Navigator used by the daemon and tests.
type Memory struct {
	initial url.Values
	current url.Values
}

// NewMemory captures the given query as both initial and current state.
func NewMemory(initial url.Values) *Memory {
	if initial == nil {
		initial = url.Values{}
	}
	return &Memory{
		initial: cloneValues(initial),
		current: cloneValues(initial),
	}
}

// Initial implements Navigator.
func (m *Memory) Initial() url.Values { return cloneValues(m.initial) }

// Replace implements Navigator.
func (m *Memory) Replace(values url.Values) { m.current = cloneValues(values) }

// Current implements Navigator.
func (m *Memory) Current() url.Values { return cloneValues(m.current) }

func cloneValues(values url.Values) url.Values {
	dup := make(url.Values, len(values))
	for key, list := range values {
		dup[key] = append([]string(nil), list...)
	}
	return dup
}
