package force

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mekforge/forcesync/internal/platform/id"
)

// CloneOptions controls clone identity generation. Zero options use the
// production clock and id generators.
type CloneOptions struct {
	Now         func() time.Time
	InstanceIDs func() (string, error)
	UnitIDs     func() string
	// NameSuffix is appended to the source name when non-empty.
	NameSuffix string
}

// Clone produces a structurally identical force under a fresh identity:
// new instance id, fresh unit ids, current timestamp, owned by this
// client. The clone shares no mutable sub-object with the source.
func (f *Force) Clone(opts CloneOptions) (*Force, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	instanceIDs := opts.InstanceIDs
	if instanceIDs == nil {
		instanceIDs = id.NewID
	}
	unitIDs := opts.UnitIDs
	if unitIDs == nil {
		unitIDs = uuid.NewString
	}

	instanceID, err := instanceIDs()
	if err != nil {
		return nil, fmt.Errorf("generate clone instance id: %w", err)
	}

	name := f.name
	if opts.NameSuffix != "" {
		name = name + opts.NameSuffix
	}

	dup := New(Config{
		Name:       name,
		NameLock:   f.nameLock,
		GameSystem: f.gameSystem,
		InstanceID: instanceID,
		Owned:      true,
		Now:        f.now,
		UnitIDGen:  f.unitIDGen,
	})
	dup.updatedAt = now().UTC()

	for _, g := range f.groups {
		dupGroup := &UnitGroup{force: dup, name: g.name, nameLock: g.nameLock}
		for _, u := range g.units {
			dupUnit := &ForceUnit{
				id:       unitIDs(),
				unit:     u.unit,
				modified: u.modified,
				force:    dup,
			}
			for _, c := range u.crew {
				dupUnit.crew = append(dupUnit.crew, c.clone())
			}
			dupGroup.units = append(dupGroup.units, dupUnit)
		}
		dup.groups = append(dup.groups, dupGroup)
	}
	return dup, nil
}
