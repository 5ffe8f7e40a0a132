package syncctl

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/urlcodec"
)

// Hydrate restores state from the initial navigation query: persisted
// forces by instance reference, plus at most one transient force decoded
// inline. It runs exactly once per session; only after it completes does
// state begin flowing back out to the URL.
func (c *Controller) Hydrate(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "syncctl.Hydrate")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hydrated {
		return ErrAlreadyHydrated
	}

	initial := c.navigator.Initial()
	decoded := urlcodec.Decode(initial, c.cat)
	for _, warning := range decoded.Warnings {
		log.Printf("hydrate: %s", warning)
	}
	span.SetAttributes(
		attribute.Int("hydrate.refs", len(decoded.Refs)),
		attribute.Bool("hydrate.transient", decoded.Transient != nil),
	)

	loaded := 0
	allNonOwned := true
	for _, ref := range decoded.Refs {
		rec, err := c.store.GetForce(ctx, ref.ID, true)
		if err != nil {
			log.Printf("hydrate: load force %s: %v", ref.ID, err)
			continue
		}
		f := force.FromSnapshot(rec.Snapshot, rec.Owned)
		c.registry.AddSlot(f, ref.Alignment)
		loaded++
		if rec.Owned {
			allNonOwned = false
		}
	}
	if len(decoded.Refs) > 0 && loaded == 0 {
		c.scrubInstanceParam(initial)
	}
	if loaded > 0 && allNonOwned {
		c.notifier.Notify("This force belongs to another player. Your edits will be saved as a copy.")
	}

	if decoded.Transient != nil {
		c.registry.AddSlot(decoded.Transient, force.AlignmentFriendly)
	}

	c.hydrated = true
	c.regenerateURL()
	return nil
}

// scrubInstanceParam strips dead instance references out of the live
// query so reloads do not retry ids that no longer resolve.
func (c *Controller) scrubInstanceParam(initial url.Values) {
	cleaned := url.Values{}
	for key, vals := range initial {
		if key == urlcodec.ParamInstance {
			continue
		}
		cleaned[key] = append([]string(nil), vals...)
	}
	c.navigator.Replace(cleaned)
}

// onForceChanged is the registry hook behind every change emission of a
// loaded force. It is the single entry point for persistence and for the
// ownership-adoption check.
func (c *Controller) onForceChanged(f *force.Force) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !f.Owned() {
		c.adopt(c.ctx, f)
		return
	}

	if f.Empty() && f.InstanceID() != "" {
		c.retireEmpty(c.ctx, f)
		return
	}

	c.persist(c.ctx, f)
	c.regenerateURL()
}

// persist saves an owned force. A transient force gains its instance id
// on first save and is subscribed on the push channel from then on.
func (c *Controller) persist(ctx context.Context, f *force.Force) {
	if f.Empty() {
		return
	}
	if f.InstanceID() == "" {
		instanceID, err := c.newInstanceID()
		if err != nil {
			log.Printf("persist: generate instance id: %v", err)
			return
		}
		f.SetInstanceID(instanceID)
		c.registry.WireInstance(f)
	}
	rec := storageRecord(f)
	if err := c.store.SaveForce(ctx, rec, false); err != nil {
		log.Printf("persist: save force %s: %v", f.InstanceID(), err)
		c.notifier.Notify(fmt.Sprintf("Could not save %q. Changes are kept locally.", f.Name()))
	}
}

// retireEmpty revokes a persisted force whose last unit was removed: the
// record is deleted and the slot unloaded.
func (c *Controller) retireEmpty(ctx context.Context, f *force.Force) {
	instanceID := f.InstanceID()
	if err := c.store.DeleteForce(ctx, instanceID); err != nil {
		log.Printf("retire: delete force %s: %v", instanceID, err)
	}
	if c.selForce == f {
		c.selForce = nil
		c.selUnitID = ""
	}
	c.registry.RemoveSlot(f)
	c.regenerateURL()
}
