package force

import (
	"github.com/mekforge/forcesync/internal/catalog"
)

// SkillKind names one crew skill track.
type SkillKind string

const (
	// SkillGunnery is the crew gunnery skill.
	SkillGunnery SkillKind = "gunnery"
	// SkillPiloting is the crew piloting skill.
	SkillPiloting SkillKind = "piloting"
)

// Default crew skill values applied when a unit is placed.
const (
	DefaultGunnery  = 4
	DefaultPiloting = 5
)

// CrewMember is a mutable crew record owned by exactly one ForceUnit.
type CrewMember struct {
	Name   string
	skills map[SkillKind]int
}

// NewCrewMember creates a crew member with default skills.
func NewCrewMember(name string) *CrewMember {
	return &CrewMember{
		Name: name,
		skills: map[SkillKind]int{
			SkillGunnery:  DefaultGunnery,
			SkillPiloting: DefaultPiloting,
		},
	}
}

// Skill returns the value for kind, or the track default when unset.
func (c *CrewMember) Skill(kind SkillKind) int {
	if value, ok := c.skills[kind]; ok {
		return value
	}
	switch kind {
	case SkillPiloting:
		return DefaultPiloting
	default:
		return DefaultGunnery
	}
}

// Skills returns a copy of the skill mapping.
func (c *CrewMember) Skills() map[SkillKind]int {
	out := make(map[SkillKind]int, len(c.skills))
	for k, v := range c.skills {
		out[k] = v
	}
	return out
}

func (c *CrewMember) setSkill(kind SkillKind, value int) {
	if c.skills == nil {
		c.skills = make(map[SkillKind]int)
	}
	c.skills[kind] = value
}

func (c *CrewMember) clone() *CrewMember {
	dup := &CrewMember{Name: c.Name, skills: make(map[SkillKind]int, len(c.skills))}
	for k, v := range c.skills {
		dup.skills[k] = v
	}
	return dup
}

// ForceUnit is a catalog unit placed into a force. It is owned by exactly
// one UnitGroup at a time.
type ForceUnit struct {
	id       string
	unit     catalog.Unit
	crew     []*CrewMember
	modified bool
	force    *Force
}

// ID returns the unit's identifier, stable across serialization.
func (u *ForceUnit) ID() string { return u.id }

// Unit returns the immutable catalog reference.
func (u *ForceUnit) Unit() catalog.Unit { return u.unit }

// Crew returns the unit's crew members in seat order.
func (u *ForceUnit) Crew() []*CrewMember { return u.crew }

// Modified reports whether the player has made gameplay changes to the
// unit (damage, ammo, heat).
func (u *ForceUnit) Modified() bool { return u.modified }

// MarkModified flags the unit as carrying gameplay changes.
func (u *ForceUnit) MarkModified() {
	if u.modified {
		return
	}
	u.modified = true
	u.force.emitChanged()
}

// ClearModified resets the gameplay-change flag, used when a snapshot
// replaces local state.
func (u *ForceUnit) ClearModified() { u.modified = false }

// SetCrewName renames the crew member in the given seat.
func (u *ForceUnit) SetCrewName(seat int, name string) error {
	if seat < 0 || seat >= len(u.crew) {
		return ErrUnitNotFound
	}
	u.crew[seat].Name = name
	u.force.emitChanged()
	return nil
}

// SetCrewSkill writes one skill value for the crew member in the given
// seat and emits a change.
func (u *ForceUnit) SetCrewSkill(seat int, kind SkillKind, value int) error {
	if seat < 0 || seat >= len(u.crew) {
		return ErrUnitNotFound
	}
	u.crew[seat].setSkill(kind, value)
	u.force.emitChanged()
	return nil
}

// release drops crew resources so external handles can be collected.
func (u *ForceUnit) release() {
	u.crew = nil
	u.force = nil
}

// UnitGroup is an ordered, named sequence of units within a force.
type UnitGroup struct {
	force    *Force
	name     string
	nameLock bool
	units    []*ForceUnit
}

// Name returns the group display name.
func (g *UnitGroup) Name() string { return g.name }

// SetName sets the display name and locks it against auto-naming.
func (g *UnitGroup) SetName(name string) {
	g.name = name
	g.nameLock = true
	g.force.emitChanged()
}

// SetAutoName overwrites the display name without locking. It is a no-op
// when the name is locked.
func (g *UnitGroup) SetAutoName(name string) {
	if g.nameLock || g.name == name {
		return
	}
	g.name = name
}

// NameLock reports whether the name was set manually.
func (g *UnitGroup) NameLock() bool { return g.nameLock }

// SetNameLock unlocks (or re-locks) the display name.
func (g *UnitGroup) SetNameLock(lock bool) { g.nameLock = lock }

// Units returns the group's units in positional order.
func (g *UnitGroup) Units() []*ForceUnit { return g.units }

// AddUnit places a catalog unit into the group with a fresh id and a
// default crew sized to the unit's crew complement.
func (g *UnitGroup) AddUnit(def catalog.Unit) *ForceUnit {
	u := &ForceUnit{
		id:    g.force.unitIDGen(),
		unit:  def,
		force: g.force,
	}
	seats := def.CrewSize
	if seats <= 0 {
		seats = 1
	}
	for i := 0; i < seats; i++ {
		u.crew = append(u.crew, NewCrewMember(""))
	}
	g.units = append(g.units, u)
	g.force.emitChanged()
	return u
}

func (g *UnitGroup) release() {
	for _, u := range g.units {
		u.release()
	}
	g.units = nil
}
