// Package catalog provides lookup of known unit definitions.
//
// Catalog entries are immutable reference data: a force never owns a unit
// definition, it references one by its unique name. The URL codec resolves
// textual unit references against a Catalog, and the naming heuristics read
// faction metadata from resolved entries.
package catalog

import (
	"errors"
	"sort"
	"strings"
)

// GameSystem discriminates the two unit representations. A force is
// monomorphic over one system; the representations are not interchangeable.
type GameSystem string

const (
	// GameSystemClassic is the default unit representation.
	GameSystemClassic GameSystem = "classic"
	// GameSystemAlphaStrike is the alpha-strike unit representation.
	GameSystemAlphaStrike GameSystem = "alpha-strike"
)

// ParseGameSystem maps a wire tag to a GameSystem, defaulting to classic.
func ParseGameSystem(tag string) GameSystem {
	if strings.EqualFold(strings.TrimSpace(tag), string(GameSystemAlphaStrike)) {
		return GameSystemAlphaStrike
	}
	return GameSystemClassic
}

// ErrEmptyName indicates a catalog entry with no name.
var ErrEmptyName = errors.New("unit name is required")

// Unit is an immutable catalog entry identified by a unique name.
type Unit struct {
	Name       string
	Faction    string
	Era        string
	Tech       string
	GameSystem GameSystem
	CrewSize   int
}

// Validate checks the entry carries the minimum viable metadata.
func (u Unit) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Catalog resolves unit names to definitions.
type Catalog interface {
	// Lookup returns the unit definition for name. The second return is
	// false when the name is unknown.
	Lookup(name string) (Unit, bool)
}

// Memory is an in-memory catalog keyed by unit name.
type Memory struct {
	units map[string]Unit
}

// NewMemory builds an in-memory catalog from the given units. Entries with
// empty names are skipped.
func NewMemory(units ...Unit) *Memory {
	m := &Memory{units: make(map[string]Unit, len(units))}
	for _, u := range units {
		if u.Validate() != nil {
			continue
		}
		if u.GameSystem == "" {
			u.GameSystem = GameSystemClassic
		}
		if u.CrewSize <= 0 {
			u.CrewSize = 1
		}
		m.units[u.Name] = u
	}
	return m
}

// Lookup implements Catalog.
func (m *Memory) Lookup(name string) (Unit, bool) {
	if m == nil {
		return Unit{}, false
	}
	u, ok := m.units[name]
	return u, ok
}

// Names returns every known unit name in lexical order.
func (m *Memory) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.units))
	for name := range m.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
