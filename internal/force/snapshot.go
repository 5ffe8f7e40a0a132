package force

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mekforge/forcesync/internal/catalog"
)

// Snapshot is the wire and storage representation of a force: enough to
// fully reconstruct groups, units, crew, and metadata. It is produced on
// demand for persistence or push broadcast and consumed either by
// ApplySnapshot (in-place update) or FromSnapshot (fresh force).
type Snapshot struct {
	InstanceID string          `json:"instance_id,omitempty"`
	Name       string          `json:"name"`
	NameLock   bool            `json:"name_lock,omitempty"`
	GameSystem string          `json:"game_system"`
	UpdatedAt  string          `json:"updated_at,omitempty"`
	Groups     []GroupSnapshot `json:"groups"`
}

// GroupSnapshot captures one unit group.
type GroupSnapshot struct {
	Name     string         `json:"name"`
	NameLock bool           `json:"name_lock,omitempty"`
	Units    []UnitSnapshot `json:"units"`
}

// UnitSnapshot captures one placed unit with its catalog reference data.
type UnitSnapshot struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Faction  string         `json:"faction,omitempty"`
	Era      string         `json:"era,omitempty"`
	Tech     string         `json:"tech,omitempty"`
	Modified bool           `json:"modified,omitempty"`
	Crew     []CrewSnapshot `json:"crew"`
}

// CrewSnapshot captures one crew member.
type CrewSnapshot struct {
	Name   string         `json:"name,omitempty"`
	Skills map[string]int `json:"skills,omitempty"`
}

// Timestamp parses the snapshot's last-modified time. Missing or
// unparseable values decode as the Unix epoch so an undated snapshot never
// wins a conflict by omission.
func (s Snapshot) Timestamp() time.Time {
	if s.UpdatedAt == "" {
		return time.Unix(0, 0).UTC()
	}
	at, err := time.Parse(time.RFC3339Nano, s.UpdatedAt)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return at.UTC()
}

// MarshalJSONString encodes the snapshot as a compact JSON document.
func (s Snapshot) MarshalJSONString() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal force snapshot: %w", err)
	}
	return string(raw), nil
}

// UnmarshalSnapshot decodes a JSON snapshot document.
func UnmarshalSnapshot(raw []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal force snapshot: %w", err)
	}
	return snap, nil
}

// Snapshot produces a deep serialized copy of the force.
func (f *Force) Snapshot() Snapshot {
	snap := Snapshot{
		InstanceID: f.instanceID,
		Name:       f.name,
		NameLock:   f.nameLock,
		GameSystem: string(f.gameSystem),
		UpdatedAt:  f.updatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, g := range f.groups {
		gs := GroupSnapshot{Name: g.name, NameLock: g.nameLock}
		for _, u := range g.units {
			us := UnitSnapshot{
				ID:       u.id,
				Name:     u.unit.Name,
				Faction:  u.unit.Faction,
				Era:      u.unit.Era,
				Tech:     u.unit.Tech,
				Modified: u.modified,
			}
			for _, c := range u.crew {
				cs := CrewSnapshot{Name: c.Name, Skills: make(map[string]int, len(c.skills))}
				for kind, value := range c.skills {
					cs.Skills[string(kind)] = value
				}
				us.Crew = append(us.Crew, cs)
			}
			gs.Units = append(gs.Units, us)
		}
		snap.Groups = append(snap.Groups, gs)
	}
	return snap
}

// FromSnapshot reconstructs a brand-new force from a snapshot. The owned
// flag comes from storage, not from the snapshot itself.
func FromSnapshot(snap Snapshot, owned bool) *Force {
	f := New(Config{
		Name:       snap.Name,
		NameLock:   snap.NameLock,
		GameSystem: catalog.ParseGameSystem(snap.GameSystem),
		InstanceID: snap.InstanceID,
		Owned:      owned,
	})
	f.populate(snap)
	f.updatedAt = snap.Timestamp()
	return f
}

// ApplySnapshot mutates the force in place to match the snapshot,
// preserving the identity of units whose ids survive. It emits no change
// notification: inbound snapshot application is state mirroring, and the
// caller is responsible for persisting it.
func (f *Force) ApplySnapshot(snap Snapshot) {
	existing := make(map[string]*ForceUnit)
	for _, u := range f.Units() {
		existing[u.id] = u
	}

	f.name = snap.Name
	f.nameLock = snap.NameLock
	f.gameSystem = catalog.ParseGameSystem(snap.GameSystem)
	f.updatedAt = snap.Timestamp()

	var groups []*UnitGroup
	for _, gs := range snap.Groups {
		g := &UnitGroup{force: f, name: gs.Name, nameLock: gs.NameLock}
		for _, us := range gs.Units {
			if u, ok := existing[us.ID]; ok {
				u.applySnapshot(us)
				g.units = append(g.units, u)
				delete(existing, us.ID)
				continue
			}
			g.units = append(g.units, unitFromSnapshot(f, us))
		}
		groups = append(groups, g)
	}
	// Units absent from the snapshot are gone for good.
	for _, u := range existing {
		u.release()
	}
	f.groups = groups
}

func (f *Force) populate(snap Snapshot) {
	for _, gs := range snap.Groups {
		g := &UnitGroup{force: f, name: gs.Name, nameLock: gs.NameLock}
		for _, us := range gs.Units {
			g.units = append(g.units, unitFromSnapshot(f, us))
		}
		f.groups = append(f.groups, g)
	}
}

func unitFromSnapshot(f *Force, us UnitSnapshot) *ForceUnit {
	unitID := us.ID
	if unitID == "" {
		unitID = f.unitIDGen()
	}
	u := &ForceUnit{
		id: unitID,
		unit: catalog.Unit{
			Name:       us.Name,
			Faction:    us.Faction,
			Era:        us.Era,
			Tech:       us.Tech,
			GameSystem: f.gameSystem,
			CrewSize:   len(us.Crew),
		},
		modified: us.Modified,
		force:    f,
	}
	u.applyCrew(us.Crew)
	return u
}

func (u *ForceUnit) applySnapshot(us UnitSnapshot) {
	u.modified = us.Modified
	u.applyCrew(us.Crew)
}

func (u *ForceUnit) applyCrew(crew []CrewSnapshot) {
	u.crew = u.crew[:0]
	for _, cs := range crew {
		member := NewCrewMember(cs.Name)
		for kind, value := range cs.Skills {
			member.setSkill(SkillKind(kind), value)
		}
		u.crew = append(u.crew, member)
	}
	if len(u.crew) == 0 {
		u.crew = append(u.crew, NewCrewMember(""))
	}
}
