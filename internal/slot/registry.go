// Package slot tracks every currently loaded force together with its
// alignment and the live subscriptions keeping it synchronized.
//
// The registry is bookkeeping, not domain data: a slot is destroyed, and
// its subscriptions torn down, whenever its force is unloaded. The
// registry is the single owner of which forces are live; no other
// component may keep a reference to an unloaded force.
package slot

import (
	"errors"

	"github.com/mekforge/forcesync/internal/force"
)

var (
	// ErrIndexOutOfRange indicates a reorder index outside the registry.
	ErrIndexOutOfRange = errors.New("slot index out of range")
	// ErrNotLoaded indicates a force that has no slot.
	ErrNotLoaded = errors.New("force is not loaded")
)

// Hooks supplies the wiring the registry applies to every added force.
type Hooks struct {
	// OnForceChanged is invoked on every change emission of a loaded
	// force (persistence save and ownership-adoption check live here).
	OnForceChanged func(f *force.Force)
	// SubscribePush subscribes the force's instance id on the push
	// channel and returns the teardown.
	SubscribePush func(instanceID string, f *force.Force) (unsubscribe func())
}

// Slot pairs one loaded force with its alignment and subscriptions.
type Slot struct {
	Force     *force.Force
	Alignment force.Alignment

	removeChange    func()
	unsubscribePush func()
}

// Registry holds the ordered set of loaded slots. It is not safe for
// concurrent use; the controller's event loop is the single caller.
type Registry struct {
	hooks  Hooks
	slots  []*Slot
	active *force.Force
}

// NewRegistry creates an empty registry with the given wiring hooks.
func NewRegistry(hooks Hooks) *Registry {
	return &Registry{hooks: hooks}
}

// Slots returns the loaded slots in presentation order.
func (r *Registry) Slots() []*Slot { return r.slots }

// Len returns the number of loaded slots.
func (r *Registry) Len() int { return len(r.slots) }

// Find returns the slot holding f, or nil.
func (r *Registry) Find(f *force.Force) *Slot {
	for _, s := range r.slots {
		if s.Force == f {
			return s
		}
	}
	return nil
}

// FindByInstanceID returns the slot whose force carries the id, or nil.
func (r *Registry) FindByInstanceID(instanceID string) *Slot {
	if instanceID == "" {
		return nil
	}
	for _, s := range r.slots {
		if s.Force.InstanceID() == instanceID {
			return s
		}
	}
	return nil
}

// AddSlot loads a force: wires its change stream, subscribes its instance
// id on the push channel when present, and makes it active if no slot is
// active yet.
func (r *Registry) AddSlot(f *force.Force, alignment force.Alignment) *Slot {
	if f == nil {
		return nil
	}
	if existing := r.Find(f); existing != nil {
		return existing
	}
	if alignment == "" {
		alignment = force.AlignmentFriendly
	}
	s := &Slot{Force: f, Alignment: alignment}
	if r.hooks.OnForceChanged != nil {
		s.removeChange = f.OnChange(func() { r.hooks.OnForceChanged(f) })
	}
	r.wirePush(s)
	r.slots = append(r.slots, s)
	if r.active == nil {
		r.active = f
	}
	return s
}

// RemoveSlot unloads a force: unsubscribes push and change streams,
// releases the force's unit resources, and removes the slot. Removing a
// force with no slot is a no-op, so teardown paths can call it freely.
func (r *Registry) RemoveSlot(f *force.Force) {
	for i, s := range r.slots {
		if s.Force != f {
			continue
		}
		s.teardown()
		r.slots = append(r.slots[:i], r.slots[i+1:]...)
		f.Release()
		if r.active == f {
			r.active = nil
			if len(r.slots) > 0 {
				r.active = r.slots[0].Force
			}
		}
		return
	}
}

// ReplaceForce swaps newForce into the slot currently holding oldForce:
// same position, same alignment, same active status. Subscriptions are
// rewired; oldForce is NOT released (adoption keeps its data alive in the
// clone, and the caller decides the original's fate).
func (r *Registry) ReplaceForce(oldForce, newForce *force.Force) error {
	s := r.Find(oldForce)
	if s == nil {
		return ErrNotLoaded
	}
	s.teardown()
	s.Force = newForce
	if r.hooks.OnForceChanged != nil {
		s.removeChange = newForce.OnChange(func() { r.hooks.OnForceChanged(newForce) })
	}
	r.wirePush(s)
	if r.active == oldForce {
		r.active = newForce
	}
	return nil
}

// Reorder moves the slot at fromIndex to toIndex. Presentation order
// only: no identity or ownership side effects.
func (r *Registry) Reorder(fromIndex, toIndex int) error {
	if fromIndex < 0 || fromIndex >= len(r.slots) || toIndex < 0 || toIndex >= len(r.slots) {
		return ErrIndexOutOfRange
	}
	if fromIndex == toIndex {
		return nil
	}
	s := r.slots[fromIndex]
	r.slots = append(r.slots[:fromIndex], r.slots[fromIndex+1:]...)
	r.slots = append(r.slots[:toIndex], append([]*Slot{s}, r.slots[toIndex:]...)...)
	return nil
}

// Active returns the force targeted by unit-add operations, nil when no
// slot is loaded.
func (r *Registry) Active() *force.Force { return r.active }

// SetActive marks a loaded force as active.
func (r *Registry) SetActive(f *force.Force) error {
	if r.Find(f) == nil {
		return ErrNotLoaded
	}
	r.active = f
	return nil
}

// WireInstance subscribes a slot's force on the push channel after it
// gains an instance id on first save.
func (r *Registry) WireInstance(f *force.Force) {
	s := r.Find(f)
	if s == nil || s.unsubscribePush != nil {
		return
	}
	r.wirePush(s)
}

// Teardown unloads every slot.
func (r *Registry) Teardown() {
	for _, s := range r.slots {
		s.teardown()
		s.Force.Release()
	}
	r.slots = nil
	r.active = nil
}

func (r *Registry) wirePush(s *Slot) {
	if r.hooks.SubscribePush == nil || s.Force.InstanceID() == "" {
		return
	}
	s.unsubscribePush = r.hooks.SubscribePush(s.Force.InstanceID(), s.Force)
}

func (s *Slot) teardown() {
	if s.removeChange != nil {
		s.removeChange()
		s.removeChange = nil
	}
	if s.unsubscribePush != nil {
		s.unsubscribePush()
		s.unsubscribePush = nil
	}
}
