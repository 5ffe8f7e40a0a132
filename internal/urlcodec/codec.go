// Package urlcodec converts the set of loaded forces to and from the
// compact query-parameter representation embedded in shareable URLs.
//
// The encoding is deterministic and round-trippable but lossy by design:
// only gunnery and piloting crew skills travel, and auto-generated display
// names are re-derived on decode instead of being stored.
//
// Grammar (informal):
//
//	instance-list := entry (',' entry)*
//	entry         := ['enemy:'] instanceId
//	units-list    := group ('|' group)*
//	group         := [groupName '~'] unit (',' unit)*
//	unit          := unitName (':' gunnery ':' piloting)*
package urlcodec

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mekforge/forcesync/internal/catalog"
	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/naming"
)

// Query parameter names.
const (
	ParamInstance   = "instance"
	ParamUnits      = "units"
	ParamName       = "name"
	ParamGameSystem = "gs"
)

const enemyPrefix = "enemy:"

// Slot pairs one loaded force with its alignment, in presentation order.
type Slot struct {
	Force     *force.Force
	Alignment force.Alignment
}

// InstanceRef is one saved-by-reference entry decoded from the instance
// parameter.
type InstanceRef struct {
	ID        string
	Alignment force.Alignment
}

// Decoded is the result of decoding a full query-parameter set.
type Decoded struct {
	Refs []InstanceRef
	// Transient is the at-most-one unsaved inline force, nil when the
	// units parameter is absent or yields no resolvable units.
	Transient *force.Force
	// Warnings lists non-fatal decode problems (unknown unit names,
	// malformed skill pairs) for the caller to log.
	Warnings []string
}

// Encode builds the canonical query representation of the loaded slots.
//
// Persisted forces are encoded by reference in the instance parameter;
// the FIRST transient force in slot order is encoded inline under the
// units/name/gs parameters. skippedTransients reports how many additional
// transient forces could not be represented (a documented limitation of
// the format, resolved by load order).
func Encode(slots []Slot) (values url.Values, skippedTransients int) {
	values = url.Values{}
	var refs []string
	var transient *Slot

	for i := range slots {
		s := slots[i]
		if s.Force == nil {
			continue
		}
		if s.Force.InstanceID() != "" {
			entry := s.Force.InstanceID()
			if s.Alignment == force.AlignmentEnemy {
				entry = enemyPrefix + entry
			}
			refs = append(refs, entry)
			continue
		}
		if transient == nil {
			transient = &s
			continue
		}
		skippedTransients++
	}

	if len(refs) > 0 {
		values.Set(ParamInstance, strings.Join(refs, ","))
	}
	if transient != nil {
		if units := encodeUnits(transient.Force); units != "" {
			values.Set(ParamUnits, units)
		}
		if transient.Force.NameLock() {
			values.Set(ParamName, transient.Force.Name())
		}
		if transient.Force.GameSystem() == catalog.GameSystemAlphaStrike {
			values.Set(ParamGameSystem, string(catalog.GameSystemAlphaStrike))
		}
	}
	return values, skippedTransients
}

func encodeUnits(f *force.Force) string {
	var groups []string
	for _, g := range f.Groups() {
		var units []string
		for _, u := range g.Units() {
			token := u.Unit().Name
			for _, c := range u.Crew() {
				token += fmt.Sprintf(":%d:%d", c.Skill(force.SkillGunnery), c.Skill(force.SkillPiloting))
			}
			units = append(units, token)
		}
		if len(units) == 0 {
			continue
		}
		segment := strings.Join(units, ",")
		if g.NameLock() && g.Name() != "" {
			segment = g.Name() + "~" + segment
		}
		groups = append(groups, segment)
	}
	return strings.Join(groups, "|")
}

// Decode parses a query-parameter set into instance references and the
// optional transient inline force. Unknown unit names and malformed skill
// pairs are skipped with a warning; decoding never fails outright.
func Decode(values url.Values, cat catalog.Catalog) Decoded {
	var out Decoded

	for _, entry := range strings.Split(values.Get(ParamInstance), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ref := InstanceRef{ID: entry, Alignment: force.AlignmentFriendly}
		if rest, ok := strings.CutPrefix(entry, enemyPrefix); ok {
			ref.ID = rest
			ref.Alignment = force.AlignmentEnemy
		}
		if ref.ID == "" {
			continue
		}
		out.Refs = append(out.Refs, ref)
	}

	unitsParam := values.Get(ParamUnits)
	if unitsParam == "" {
		return out
	}

	// The inline force is this player's own roster: it is owned from
	// birth and gains an instance id through the plain persist path, not
	// through adoption.
	f := force.New(force.Config{
		GameSystem: catalog.ParseGameSystem(values.Get(ParamGameSystem)),
		Owned:      true,
	})

	resolved := 0
	var allUnits []catalog.Unit
	for groupIdx, segment := range strings.Split(unitsParam, "|") {
		groupName := ""
		groupLock := false
		if name, rest, ok := strings.Cut(segment, "~"); ok {
			groupName = name
			groupLock = true
			segment = rest
		}
		g := f.AddGroup(groupName, groupLock)
		var groupUnits []catalog.Unit
		for _, token := range strings.Split(segment, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			unitName, skills := splitUnitToken(token)
			def, ok := cat.Lookup(unitName)
			if !ok {
				out.Warnings = append(out.Warnings, fmt.Sprintf("unknown unit %q skipped", unitName))
				continue
			}
			u := g.AddUnit(def)
			out.Warnings = append(out.Warnings, applyCrewSkills(u, skills)...)
			groupUnits = append(groupUnits, def)
			allUnits = append(allUnits, def)
			resolved++
		}
		if !groupLock {
			g.SetAutoName(naming.GroupName(groupIdx, groupUnits))
		}
	}

	if resolved == 0 {
		return out
	}

	if name := values.Get(ParamName); name != "" {
		f.SetName(name)
	} else {
		f.SetAutoName(naming.ForceName(allUnits))
	}
	out.Transient = f
	return out
}

// splitUnitToken separates the unit name from its positional skill values.
// The name is everything before the first colon.
func splitUnitToken(token string) (name string, skills []string) {
	parts := strings.Split(token, ":")
	return parts[0], parts[1:]
}

// applyCrewSkills assigns positional gunnery/piloting pairs to the unit's
// crew seats. Pairs beyond the crew size are ignored; missing pairs leave
// default skills.
func applyCrewSkills(u *force.ForceUnit, skills []string) (warnings []string) {
	crew := u.Crew()
	for seat := 0; seat*2+1 < len(skills) && seat < len(crew); seat++ {
		gunnery, errG := strconv.Atoi(strings.TrimSpace(skills[seat*2]))
		piloting, errP := strconv.Atoi(strings.TrimSpace(skills[seat*2+1]))
		if errG != nil || errP != nil {
			warnings = append(warnings, fmt.Sprintf("malformed skill pair for %q seat %d skipped", u.Unit().Name, seat))
			continue
		}
		_ = u.SetCrewSkill(seat, force.SkillGunnery, gunnery)
		_ = u.SetCrewSkill(seat, force.SkillPiloting, piloting)
	}
	return warnings
}
