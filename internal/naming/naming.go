// Package naming derives display names for forces and unit groups.
//
// Names are pure functions of the units they describe: the same units
// always produce the same name, so auto-generated names are never stored
// and can be re-derived on decode. A manually set name wins over these
// heuristics via the name lock on the owning force or group.
package naming

import (
	"fmt"
	"sort"

	"github.com/mekforge/forcesync/internal/catalog"
)

var groupOrdinals = []string{
	"First", "Second", "Third", "Fourth",
	"Fifth", "Sixth", "Seventh", "Eighth",
}

// ForceName derives a display name from the dominant faction of the given
// units. Forces with no resolvable faction become "Unnamed Force".
func ForceName(units []catalog.Unit) string {
	faction := dominantFaction(units)
	if faction == "" {
		return "Unnamed Force"
	}
	return faction + " Force"
}

// GroupName derives a display name for the group at index from its units.
// The ordinal keeps sibling groups distinguishable when factions repeat.
func GroupName(index int, units []catalog.Unit) string {
	ordinal := fmt.Sprintf("%dth", index+1)
	if index >= 0 && index < len(groupOrdinals) {
		ordinal = groupOrdinals[index]
	}
	faction := dominantFaction(units)
	if faction == "" {
		return ordinal + " Lance"
	}
	return fmt.Sprintf("%s %s Lance", ordinal, faction)
}

// dominantFaction returns the most common non-empty faction among units.
// Ties break lexically so the result is deterministic.
func dominantFaction(units []catalog.Unit) string {
	counts := make(map[string]int)
	for _, u := range units {
		if u.Faction != "" {
			counts[u.Faction]++
		}
	}
	if len(counts) == 0 {
		return ""
	}
	factions := make([]string, 0, len(counts))
	for f := range counts {
		factions = append(factions, f)
	}
	sort.Strings(factions)
	best := factions[0]
	for _, f := range factions[1:] {
		if counts[f] > counts[best] {
			best = f
		}
	}
	return best
}
