// Package syncctl orchestrates force state synchronization: startup
// hydration from the navigation query, continuous URL regeneration on
// state change, push-driven in-place replacement, conflict detection
// against the remote store, and ownership adoption.
//
// The controller serializes all state access behind one mutex: the
// engine's "concurrency" is multiple asynchronous event sources (user
// edits, push frames, connectivity edges, prompt decisions) interleaving
// over single-threaded state, and the mutex is the Go rendition of that
// cooperative model. Collaborator failures are caught and logged at the
// boundary; no error propagates into the regeneration path.
package syncctl

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mekforge/forcesync/internal/catalog"
	"github.com/mekforge/forcesync/internal/force"
	"github.com/mekforge/forcesync/internal/nav"
	"github.com/mekforge/forcesync/internal/prompt"
	"github.com/mekforge/forcesync/internal/push"
	"github.com/mekforge/forcesync/internal/slot"
	"github.com/mekforge/forcesync/internal/storage"
	"github.com/mekforge/forcesync/internal/urlcodec"
)

var (
	// ErrAlreadyHydrated indicates a second hydration attempt in the same
	// session.
	ErrAlreadyHydrated = errors.New("controller is already hydrated")
	// ErrStoreRequired indicates a controller built without storage.
	ErrStoreRequired = errors.New("force store is required")
	// ErrNavigatorRequired indicates a controller built without navigation.
	ErrNavigatorRequired = errors.New("navigator is required")
)

// Options wires the controller's collaborators. Store and Navigator are
// required; the rest degrade to no-ops when absent.
type Options struct {
	Store     storage.ForceStore
	Channel   push.Channel
	Navigator nav.Navigator
	Catalog   catalog.Catalog
	Prompter  prompt.Prompter
	Notifier  prompt.Notifier

	// Now and NewInstanceID default to time.Now and force.NewInstanceID.
	Now           func() time.Time
	NewInstanceID func() (string, error)
}

// Controller keeps the loaded forces, the navigation query, the local
// cache, and the remote store mutually consistent.
type Controller struct {
	store     storage.ForceStore
	channel   push.Channel
	navigator nav.Navigator
	cat       catalog.Catalog
	prompter  prompt.Prompter
	notifier  prompt.Notifier

	now           func() time.Time
	newInstanceID func() (string, error)
	tracer        trace.Tracer

	// mu serializes all state access. Methods that mutate a wired force
	// must not hold mu across emitting mutators; the aggregate's silent
	// operations (ApplySnapshot, Touch, SetInstanceID) are safe.
	mu       sync.Mutex
	registry *slot.Registry
	hydrated bool
	// urlSuspend > 0 blocks outbound URL regeneration; the suspend
	// bracket around push application is scoped so the counter is always
	// restored.
	urlSuspend int

	selForce  *force.Force
	selUnitID string

	// One conflict dialog at a time: a newer sweep cancels the stale one.
	conflictGen    int
	conflictCancel context.CancelFunc

	ctx context.Context
}

// New creates a controller. It does not touch the navigation state until
// Hydrate runs.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, ErrStoreRequired
	}
	if opts.Navigator == nil {
		return nil, ErrNavigatorRequired
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	gen := opts.NewInstanceID
	if gen == nil {
		gen = force.NewInstanceID
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = prompt.NotifierFunc(func(string) {})
	}
	c := &Controller{
		store:         opts.Store,
		channel:       opts.Channel,
		navigator:     opts.Navigator,
		cat:           opts.Catalog,
		prompter:      opts.Prompter,
		notifier:      notifier,
		now:           now,
		newInstanceID: gen,
		tracer:        otel.Tracer("forcesync/syncctl"),
		ctx:           context.Background(),
	}
	c.registry = slot.NewRegistry(slot.Hooks{
		OnForceChanged: c.onForceChanged,
		SubscribePush:  c.subscribePush,
	})
	return c, nil
}

// Run hydrates from the initial navigation state, wires the push
// channel's connectivity signal to the conflict sweep, and blocks until
// ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	if err := c.Hydrate(ctx); err != nil {
		return err
	}
	if c.channel != nil {
		c.channel.OnConnectivityChange(func(connected bool) {
			if connected {
				c.SweepConflicts(c.ctx)
			}
		})
	}
	<-ctx.Done()
	c.mu.Lock()
	c.cancelConflictLocked()
	c.registry.Teardown()
	c.mu.Unlock()
	return nil
}

// Slots returns the loaded slots in presentation order.
func (c *Controller) Slots() []*slot.Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*slot.Slot(nil), c.registry.Slots()...)
}

// Active returns the force targeted by unit-add operations.
func (c *Controller) Active() *force.Force {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Active()
}

// SetActive marks a loaded force active.
func (c *Controller) SetActive(f *force.Force) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.SetActive(f)
}

// Select records the current unit selection. unitID may be empty to
// select a force without a unit.
func (c *Controller) Select(f *force.Force, unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selForce = f
	c.selUnitID = unitID
}

// Selection returns the selected force and unit id.
func (c *Controller) Selection() (*force.Force, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selForce, c.selUnitID
}

// AddForce loads an in-memory force into a new slot.
func (c *Controller) AddForce(f *force.Force, alignment force.Alignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.AddSlot(f, alignment)
	c.regenerateURL()
}

// LoadForce fetches a stored force by id and loads it into a new slot.
func (c *Controller) LoadForce(ctx context.Context, instanceID string, alignment force.Alignment) (*force.Force, error) {
	rec, err := c.store.GetForce(ctx, instanceID, true)
	if err != nil {
		return nil, fmt.Errorf("load force %s: %w", instanceID, err)
	}
	f := force.FromSnapshot(rec.Snapshot, rec.Owned)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.AddSlot(f, alignment)
	c.regenerateURL()
	return f, nil
}

// RemoveForce unloads a force, tearing down its subscriptions and
// releasing its resources.
func (c *Controller) RemoveForce(f *force.Force) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selForce == f {
		c.selForce = nil
		c.selUnitID = ""
	}
	c.registry.RemoveSlot(f)
	c.regenerateURL()
}

// Reorder changes slot presentation order only.
func (c *Controller) Reorder(fromIndex, toIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.registry.Reorder(fromIndex, toIndex); err != nil {
		return err
	}
	c.regenerateURL()
	return nil
}

// subscribePush is the registry hook wiring a loaded instance id to the
// push channel.
func (c *Controller) subscribePush(instanceID string, f *force.Force) func() {
	if c.channel == nil {
		return func() {}
	}
	c.channel.Subscribe(instanceID, func(snap force.Snapshot) {
		c.onPushSnapshot(f, instanceID, snap)
	})
	return func() { c.channel.Unsubscribe(instanceID) }
}

// suspendURLLocked blocks outbound regeneration until the returned
// release runs. Callers must defer the release so the counter is
// restored on every exit path, panics included.
func (c *Controller) suspendURLLocked() (release func()) {
	c.urlSuspend++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		c.urlSuspend--
		c.regenerateURL()
	}
}

// regenerateURL recomputes the canonical query representation and, when
// it differs from the live state, replaces it. Replacement mirrors state;
// it never creates history entries. No-op until hydration completes and
// while a push application holds the suspend bracket.
func (c *Controller) regenerateURL() {
	if !c.hydrated || c.urlSuspend > 0 {
		return
	}
	slots := c.registry.Slots()
	encodeSlots := make([]urlcodec.Slot, 0, len(slots))
	for _, s := range slots {
		encodeSlots = append(encodeSlots, urlcodec.Slot{Force: s.Force, Alignment: s.Alignment})
	}
	values, skipped := urlcodec.Encode(encodeSlots)
	if skipped > 0 {
		log.Printf("url encode: %d transient force(s) not representable, keeping first by load order", skipped)
	}
	if values.Encode() == c.navigator.Current().Encode() {
		return
	}
	c.navigator.Replace(values)
}
