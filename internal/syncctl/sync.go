package syncctl

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/prompt"
	"github.com/mekforge/forcesync/internal/storage"
)

func storageRecord(f *force.Force) storage.Record {
	return storage.Record{Snapshot: f.Snapshot(), Owned: f.Owned()}
}

// onPushSnapshot applies a pushed snapshot in place, preserving the
// object identity of the loaded force and of every unit whose id
// survives. The URL suspend bracket wraps the whole application so a
// remote push never rewrites this client's query mid-flight.
func (c *Controller) onPushSnapshot(f *force.Force, instanceID string, snap force.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Snapshots for another instance are dropped, not applied to the
	// wrong force.
	if snap.InstanceID != instanceID || f.InstanceID() != instanceID {
		return
	}
	if c.registry.Find(f) == nil {
		return
	}

	release := c.suspendURLLocked()
	defer release()

	sel := c.captureSelection(f)
	f.ApplySnapshot(snap)
	if err := c.store.SaveSerializedLocal(c.ctx, snap); err != nil {
		log.Printf("push: cache snapshot %s: %v", instanceID, err)
	}
	c.restoreSelection(f, sel)
}

// selectionState remembers enough of the current selection to survive an
// in-place snapshot application.
type selectionState struct {
	belongs bool
	unitID  string
	index   int
}

func (c *Controller) captureSelection(f *force.Force) selectionState {
	if c.selForce != f || c.selUnitID == "" {
		return selectionState{}
	}
	return selectionState{
		belongs: true,
		unitID:  c.selUnitID,
		index:   f.UnitIndex(c.selUnitID),
	}
}

// restoreSelection reselects after an in-place update: the same unit id
// when it survived, else the unit now at the remembered position, else
// the first unit, else nothing.
func (c *Controller) restoreSelection(f *force.Force, sel selectionState) {
	if !sel.belongs {
		return
	}
	if _, ok := f.UnitByID(sel.unitID); ok {
		c.selUnitID = sel.unitID
		return
	}
	units := f.Units()
	switch {
	case len(units) == 0:
		c.selForce = nil
		c.selUnitID = ""
	case sel.index >= 0 && sel.index < len(units):
		c.selUnitID = units[sel.index].ID()
	default:
		c.selUnitID = units[0].ID()
	}
}

// SweepConflicts compares every persisted loaded force against its
// stored record and resolves the ones where the stored version is
// strictly newer. It runs on every connectivity rising edge and may be
// invoked directly after an explicit refresh.
func (c *Controller) SweepConflicts(ctx context.Context) {
	ctx, span := c.tracer.Start(ctx, "syncctl.SweepConflicts")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	conflicts := 0
	for _, s := range c.registry.Slots() {
		f := s.Force
		instanceID := f.InstanceID()
		if instanceID == "" {
			continue
		}
		rec, err := c.store.GetForce(ctx, instanceID, false)
		if err != nil {
			log.Printf("sweep: fetch force %s: %v", instanceID, err)
			continue
		}
		// Missing timestamps default to epoch, so a half-written record
		// never masks a real local edit.
		if !rec.Snapshot.Timestamp().After(f.UpdatedAt()) {
			continue
		}
		conflicts++
		if !f.Owned() {
			c.applyStored(ctx, f, rec)
			c.notifier.Notify(fmt.Sprintf("%q was updated from the cloud.", f.Name()))
			continue
		}
		c.openConflictPrompt(ctx, f, rec)
	}
	span.SetAttributes(attribute.Int("sweep.conflicts", conflicts))
}

// applyStored replaces local state with the stored record in place,
// inside the suspend bracket and with selection restored.
func (c *Controller) applyStored(ctx context.Context, f *force.Force, rec storage.Record) {
	release := c.suspendURLLocked()
	defer release()

	sel := c.captureSelection(f)
	f.ApplySnapshot(rec.Snapshot)
	if err := c.store.SaveSerializedLocal(ctx, rec.Snapshot); err != nil {
		log.Printf("sweep: cache snapshot %s: %v", f.InstanceID(), err)
	}
	c.restoreSelection(f, sel)
}

// openConflictPrompt raises the three-way owned-force conflict dialog on
// a helper goroutine. At most one dialog is live: a newer conflict
// cancels the stale one, whose NoSelection result is then discarded.
func (c *Controller) openConflictPrompt(ctx context.Context, f *force.Force, rec storage.Record) {
	if c.prompter == nil {
		log.Printf("sweep: conflict on %s with no prompter, leaving local state", f.InstanceID())
		return
	}
	// When one sweep finds several owned conflicts, each dialog replaces
	// the previous one and only the latest decision applies. A replaced
	// conflict is untouched data and resurfaces on the next sweep.
	c.cancelConflictLocked()

	promptCtx, cancel := context.WithCancel(ctx)
	c.conflictCancel = cancel
	c.conflictGen++
	gen := c.conflictGen

	title := "Cloud version is newer"
	message := fmt.Sprintf("%q changed in the cloud after your last local edit. Which version do you want?", f.Name())
	choices := []string{prompt.ChoiceLoadCloud, prompt.ChoiceKeepLocal, prompt.ChoiceCloneLocal}

	go func() {
		choice := c.prompter.Choose(promptCtx, title, message, choices)
		cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.conflictGen {
			// A newer conflict replaced this dialog.
			return
		}
		c.conflictCancel = nil
		c.resolveConflict(ctx, f, rec, choice)
	}()
}

func (c *Controller) cancelConflictLocked() {
	if c.conflictCancel != nil {
		c.conflictCancel()
		c.conflictCancel = nil
	}
}

// resolveConflict applies the user's decision. A dismissed dialog
// changes nothing; the conflict resurfaces on the next sweep.
func (c *Controller) resolveConflict(ctx context.Context, f *force.Force, rec storage.Record, choice string) {
	if c.registry.Find(f) == nil {
		return
	}
	switch choice {
	case prompt.ChoiceLoadCloud:
		c.applyStored(ctx, f, rec)
		c.notifier.Notify(fmt.Sprintf("Loaded the cloud version of %q.", f.Name()))
	case prompt.ChoiceKeepLocal:
		f.Touch()
		if err := c.store.SaveForce(ctx, storageRecord(f), true); err != nil {
			log.Printf("conflict: overwrite force %s: %v", f.InstanceID(), err)
			c.notifier.Notify(fmt.Sprintf("Could not overwrite the cloud version of %q.", f.Name()))
			return
		}
		c.notifier.Notify(fmt.Sprintf("Kept your local version of %q.", f.Name()))
	case prompt.ChoiceCloneLocal:
		c.cloneLocal(ctx, f, rec)
	case prompt.NoSelection:
	default:
		log.Printf("conflict: unknown choice %q for force %s", choice, f.InstanceID())
	}
}

// cloneLocal resolves a conflict without data loss: the stored version
// stays untouched under the old id, and the local state continues under
// a fresh identity in the same slot.
func (c *Controller) cloneLocal(ctx context.Context, f *force.Force, rec storage.Record) {
	oldID := f.InstanceID()
	dup, err := f.Clone(force.CloneOptions{
		Now:         c.now,
		InstanceIDs: c.newInstanceID,
		NameSuffix:  " (local copy)",
	})
	if err != nil {
		log.Printf("conflict: clone force %s: %v", oldID, err)
		return
	}
	if err := c.registry.ReplaceForce(f, dup); err != nil {
		log.Printf("conflict: replace force %s: %v", oldID, err)
		return
	}
	c.transferSelection(f, dup)
	// The local cache entry under the old id now mirrors the stored
	// version; the local edits live on under the clone's id.
	if err := c.store.SaveSerializedLocal(ctx, rec.Snapshot); err != nil {
		log.Printf("conflict: cache stored snapshot %s: %v", oldID, err)
	}
	if err := c.store.SaveForce(ctx, storageRecord(dup), false); err != nil {
		log.Printf("conflict: save clone %s: %v", dup.InstanceID(), err)
	}
	c.notifier.Notify(fmt.Sprintf("Saved your version as %q.", dup.Name()))
	c.regenerateURL()
}

// adopt handles an edit to a non-owned force: the force is cloned under
// a fresh identity owned by this client, the clone takes over the slot,
// and the original's local cache entry is dropped. Editing never mutates
// another player's record. The clone is owned, so a re-entrant change
// emission takes the plain persistence path.
func (c *Controller) adopt(ctx context.Context, f *force.Force) {
	ctx, span := c.tracer.Start(ctx, "syncctl.adopt")
	defer span.End()

	oldID := f.InstanceID()
	span.SetAttributes(attribute.String("adopt.source_instance_id", oldID))

	// Emptying another player's force leaves their record alone; only
	// the local mirror goes away.
	if f.Empty() {
		if oldID != "" {
			if err := c.store.DeleteLocalForce(ctx, oldID); err != nil {
				log.Printf("adopt: drop local cache %s: %v", oldID, err)
			}
		}
		if c.selForce == f {
			c.selForce = nil
			c.selUnitID = ""
		}
		c.registry.RemoveSlot(f)
		c.regenerateURL()
		return
	}

	sel := c.captureSelection(f)
	dup, err := f.Clone(force.CloneOptions{Now: c.now, InstanceIDs: c.newInstanceID})
	if err != nil {
		log.Printf("adopt: clone force %s: %v", oldID, err)
		return
	}
	if err := c.registry.ReplaceForce(f, dup); err != nil {
		log.Printf("adopt: replace force %s: %v", oldID, err)
		return
	}
	if oldID != "" {
		if err := c.store.DeleteLocalForce(ctx, oldID); err != nil {
			log.Printf("adopt: drop local cache %s: %v", oldID, err)
		}
	}
	// Unit ids are fresh on the clone, so selection maps by position.
	if sel.belongs {
		c.selForce = dup
		units := dup.Units()
		if sel.index >= 0 && sel.index < len(units) {
			c.selUnitID = units[sel.index].ID()
		} else {
			c.selUnitID = ""
		}
	} else if c.selForce == f {
		c.selForce = dup
	}
	if err := c.store.SaveForce(ctx, storageRecord(dup), false); err != nil {
		log.Printf("adopt: save clone %s: %v", dup.InstanceID(), err)
	}
	c.notifier.Notify(fmt.Sprintf("%q belonged to another player. Your changes were saved as your own copy.", dup.Name()))
	c.regenerateURL()
}

// transferSelection moves the selection from old to new by unit position.
func (c *Controller) transferSelection(oldForce, newForce *force.Force) {
	if c.selForce != oldForce {
		return
	}
	sel := selectionState{belongs: true, unitID: c.selUnitID, index: oldForce.UnitIndex(c.selUnitID)}
	c.selForce = newForce
	units := newForce.Units()
	if sel.index >= 0 && sel.index < len(units) {
		c.selUnitID = units[sel.index].ID()
	} else {
		c.selUnitID = ""
	}
}
