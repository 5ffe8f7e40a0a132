// Package force models the mutable roster aggregate: a force composed of
// ordered unit groups, each owning placed units and their crews.
//
// A Force is not safe for concurrent use. The synchronization controller's
// event loop is the single mutator; every mutation emits a change
// notification strictly after the mutation, in emission order. Multiple
// writes can be coalesced into one notification with Batch.
package force

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mekforge/forcesync/internal/catalog"
	"github.com/mekforge/forcesync/internal/platform/id"
)

var (
	// ErrUnitNotFound indicates a unit id that is not part of this force.
	ErrUnitNotFound = errors.New("unit not found in force")
	// ErrGroupNotFound indicates a group that is not part of this force.
	ErrGroupNotFound = errors.New("group not found in force")
)

// Alignment tags a loaded force for display filtering.
type Alignment string

const (
	// AlignmentFriendly is the default alignment of a loaded force.
	AlignmentFriendly Alignment = "friendly"
	// AlignmentEnemy marks an opposing force.
	AlignmentEnemy Alignment = "enemy"
)

// Config describes the metadata needed to create a force.
type Config struct {
	Name       string
	NameLock   bool
	GameSystem catalog.GameSystem
	// InstanceID is empty for a transient force that has never been
	// persisted as a sharable record.
	InstanceID string
	Owned      bool

	// Now and UnitIDGen default to time.Now and uuid.NewString.
	Now       func() time.Time
	UnitIDGen func() string
}

// Force is a player's roster: ordered groups of units under one game system.
type Force struct {
	instanceID string
	name       string
	nameLock   bool
	gameSystem catalog.GameSystem
	groups     []*UnitGroup
	updatedAt  time.Time
	owned      bool
	released   bool

	listeners  map[int]func()
	nextListen int
	listenSeq  []int

	batchDepth int
	batchDirty bool

	now       func() time.Time
	unitIDGen func() string
}

// New creates an empty force.
func New(cfg Config) *Force {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	gen := cfg.UnitIDGen
	if gen == nil {
		gen = uuid.NewString
	}
	gameSystem := cfg.GameSystem
	if gameSystem == "" {
		gameSystem = catalog.GameSystemClassic
	}
	return &Force{
		instanceID: cfg.InstanceID,
		name:       cfg.Name,
		nameLock:   cfg.NameLock,
		gameSystem: gameSystem,
		updatedAt:  now().UTC(),
		owned:      cfg.Owned,
		listeners:  make(map[int]func()),
		now:        now,
		unitIDGen:  gen,
	}
}

// NewInstanceID generates a sharable-record identifier for a force.
func NewInstanceID() (string, error) {
	return id.NewID()
}

// InstanceID returns the sharable-record id, empty for a transient force.
func (f *Force) InstanceID() string { return f.instanceID }

// Transient reports whether the force has never been persisted.
func (f *Force) Transient() bool { return f.instanceID == "" }

// SetInstanceID records the id assigned on first successful save.
func (f *Force) SetInstanceID(instanceID string) { f.instanceID = instanceID }

// Name returns the display name.
func (f *Force) Name() string { return f.name }

// SetName sets the display name and locks it against auto-naming.
func (f *Force) SetName(name string) {
	f.name = name
	f.nameLock = true
	f.emitChanged()
}

// SetAutoName overwrites the display name without locking. It is a no-op
// when the name is locked.
func (f *Force) SetAutoName(name string) {
	if f.nameLock || f.name == name {
		return
	}
	f.name = name
	f.emitChanged()
}

// NameLock reports whether the name was set manually.
func (f *Force) NameLock() bool { return f.nameLock }

// SetNameLock unlocks (or re-locks) the display name.
func (f *Force) SetNameLock(lock bool) { f.nameLock = lock }

// GameSystem returns the game-system tag. A force is monomorphic over one
// system for its whole lifetime.
func (f *Force) GameSystem() catalog.GameSystem { return f.gameSystem }

// Owned reports whether this client holds write authority over the stored
// record.
func (f *Force) Owned() bool { return f.owned }

// SetOwned records write authority as resolved by storage.
func (f *Force) SetOwned(owned bool) { f.owned = owned }

// UpdatedAt returns the last-modified timestamp.
func (f *Force) UpdatedAt() time.Time { return f.updatedAt }

// Touch bumps the last-modified timestamp to now.
func (f *Force) Touch() { f.updatedAt = f.now().UTC() }

// SetUpdatedAt overwrites the last-modified timestamp, used when loading
// a stored snapshot.
func (f *Force) SetUpdatedAt(at time.Time) { f.updatedAt = at.UTC() }

// Groups returns the ordered unit groups.
func (f *Force) Groups() []*UnitGroup { return f.groups }

// AddGroup appends a new group. An empty name with lock false leaves the
// display name to the naming heuristic.
func (f *Force) AddGroup(name string, lock bool) *UnitGroup {
	g := &UnitGroup{force: f, name: name, nameLock: lock}
	f.groups = append(f.groups, g)
	f.emitChanged()
	return g
}

// RemoveGroup removes a group and releases its units.
func (f *Force) RemoveGroup(g *UnitGroup) error {
	for i, have := range f.groups {
		if have == g {
			f.groups = append(f.groups[:i], f.groups[i+1:]...)
			g.release()
			f.emitChanged()
			return nil
		}
	}
	return ErrGroupNotFound
}

// Units returns every unit in group order.
func (f *Force) Units() []*ForceUnit {
	var units []*ForceUnit
	for _, g := range f.groups {
		units = append(units, g.units...)
	}
	return units
}

// UnitByID finds a unit anywhere in the force.
func (f *Force) UnitByID(unitID string) (*ForceUnit, bool) {
	for _, g := range f.groups {
		for _, u := range g.units {
			if u.id == unitID {
				return u, true
			}
		}
	}
	return nil, false
}

// UnitIndex returns the position of the unit in group order, -1 if absent.
func (f *Force) UnitIndex(unitID string) int {
	for i, u := range f.Units() {
		if u.id == unitID {
			return i
		}
	}
	return -1
}

// MoveUnit transfers a unit into another group of the same force. The unit
// keeps its identity; ownership moves, nothing is duplicated.
func (f *Force) MoveUnit(unitID string, to *UnitGroup) error {
	if to == nil || to.force != f {
		return ErrGroupNotFound
	}
	for _, g := range f.groups {
		for i, u := range g.units {
			if u.id != unitID {
				continue
			}
			if g == to {
				return nil
			}
			g.units = append(g.units[:i], g.units[i+1:]...)
			to.units = append(to.units, u)
			f.emitChanged()
			return nil
		}
	}
	return ErrUnitNotFound
}

// RemoveUnit removes a unit from whichever group owns it and releases it.
func (f *Force) RemoveUnit(unitID string) error {
	for _, g := range f.groups {
		for i, u := range g.units {
			if u.id != unitID {
				continue
			}
			g.units = append(g.units[:i], g.units[i+1:]...)
			u.release()
			f.emitChanged()
			return nil
		}
	}
	return ErrUnitNotFound
}

// Empty reports whether no group holds any unit. Downstream logic treats an
// empty force as deletion-eligible.
func (f *Force) Empty() bool {
	for _, g := range f.groups {
		if len(g.units) > 0 {
			return false
		}
	}
	return true
}

// OnChange registers a listener invoked after every mutation. The returned
// function removes the listener.
func (f *Force) OnChange(fn func()) (remove func()) {
	key := f.nextListen
	f.nextListen++
	f.listeners[key] = fn
	f.listenSeq = append(f.listenSeq, key)
	return func() {
		delete(f.listeners, key)
	}
}

// Batch runs fn with change notifications suppressed. Leaving the batch,
// on every exit path, re-enables notifications and emits exactly one if
// any field changed inside.
func (f *Force) Batch(fn func()) {
	f.batchDepth++
	defer func() {
		f.batchDepth--
		if f.batchDepth == 0 && f.batchDirty {
			f.batchDirty = false
			f.emitChanged()
		}
	}()
	fn()
}

// Release disposes every unit and crew resource held by the force. The
// force must not be mutated afterwards.
func (f *Force) Release() {
	if f.released {
		return
	}
	f.released = true
	for _, g := range f.groups {
		g.release()
	}
	f.groups = nil
	f.listeners = map[int]func(){}
	f.listenSeq = nil
}

func (f *Force) emitChanged() {
	f.updatedAt = f.now().UTC()
	if f.batchDepth > 0 {
		f.batchDirty = true
		return
	}
	// Registration order, skipping removed listeners.
	for _, key := range f.listenSeq {
		if fn, ok := f.listeners[key]; ok {
			fn()
		}
	}
}
