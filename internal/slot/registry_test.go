package slot

import (
	"testing"

	"github.com/mekforge/forcesync/internal/catalog"
	"github.com/mekforge/forcesync/internal/force"
)

func newForce(instanceID string) *force.Force {
	f := force.New(force.Config{Name: "Test", InstanceID: instanceID, Owned: true})
	f.AddGroup("", false).AddUnit(catalog.Unit{Name: "Locust LCT-1V", CrewSize: 1})
	return f
}

type recordedHooks struct {
	changed      []*force.Force
	subscribed   []string
	unsubscribed []string
}

func (h *recordedHooks) hooks() Hooks {
	return Hooks{
		OnForceChanged: func(f *force.Force) { h.changed = append(h.changed, f) },
		SubscribePush: func(instanceID string, _ *force.Force) func() {
			h.subscribed = append(h.subscribed, instanceID)
			return func() { h.unsubscribed = append(h.unsubscribed, instanceID) }
		},
	}
}

func TestAddSlotWiresChangeAndPush(t *testing.T) {
	rec := &recordedHooks{}
	r := NewRegistry(rec.hooks())
	f := newForce("aaa")

	s := r.AddSlot(f, force.AlignmentEnemy)
	if s == nil || s.Alignment != force.AlignmentEnemy {
		t.Fatalf("unexpected slot %+v", s)
	}
	if len(rec.subscribed) != 1 || rec.subscribed[0] != "aaa" {
		t.Fatalf("expected push subscription for aaa, got %v", rec.subscribed)
	}
	if r.Active() != f {
		t.Fatal("expected first slot to become active")
	}

	f.AddGroup("", false)
	if len(rec.changed) != 1 || rec.changed[0] != f {
		t.Fatalf("expected change hook, got %v", rec.changed)
	}
}

func TestAddSlotTransientSkipsPush(t *testing.T) {
	rec := &recordedHooks{}
	r := NewRegistry(rec.hooks())
	r.AddSlot(newForce(""), force.AlignmentFriendly)

	if len(rec.subscribed) != 0 {
		t.Fatalf("expected no subscription for transient force, got %v", rec.subscribed)
	}
}

func TestAddSlotIdempotentPerForce(t *testing.T) {
	rec := &recordedHooks{}
	r := NewRegistry(rec.hooks())
	f := newForce("aaa")

	first := r.AddSlot(f, force.AlignmentFriendly)
	second := r.AddSlot(f, force.AlignmentEnemy)
	if first != second {
		t.Fatal("expected same slot for repeated add")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 slot, got %d", r.Len())
	}
}

func TestRemoveSlotTearsDownAndPromotes(t *testing.T) {
	rec := &recordedHooks{}
	r := NewRegistry(rec.hooks())
	first := newForce("aaa")
	second := newForce("bbb")
	r.AddSlot(first, force.AlignmentFriendly)
	r.AddSlot(second, force.AlignmentFriendly)

	r.RemoveSlot(first)

	if len(rec.unsubscribed) != 1 || rec.unsubscribed[0] != "aaa" {
		t.Fatalf("expected unsubscribe for aaa, got %v", rec.unsubscribed)
	}
	if r.Active() != second {
		t.Fatal("expected first remaining slot promoted to active")
	}
	if len(first.Groups()) != 0 {
		t.Fatal("expected removed force released")
	}

	// Idempotent on a force with no slot.
	r.RemoveSlot(first)
	if r.Len() != 1 {
		t.Fatalf("expected 1 slot, got %d", r.Len())
	}
}

func TestRemoveLastSlotLeavesNoActive(t *testing.T) {
	r := NewRegistry(Hooks{})
	f := newForce("")
	r.AddSlot(f, force.AlignmentFriendly)
	r.RemoveSlot(f)
	if r.Active() != nil {
		t.Fatal("expected no active force")
	}
}

func TestReplaceForceKeepsPositionAlignmentActive(t *testing.T) {
	rec := &recordedHooks{}
	r := NewRegistry(rec.hooks())
	other := newForce("other")
	old := newForce("aaa")
	r.AddSlot(other, force.AlignmentFriendly)
	s := r.AddSlot(old, force.AlignmentEnemy)
	if err := r.SetActive(old); err != nil {
		t.Fatalf("set active: %v", err)
	}

	replacement := newForce("bbb")
	if err := r.ReplaceForce(old, replacement); err != nil {
		t.Fatalf("replace force: %v", err)
	}

	if s.Force != replacement || s.Alignment != force.AlignmentEnemy {
		t.Fatalf("unexpected slot after replace: %+v", s)
	}
	if r.Slots()[1] != s {
		t.Fatal("expected slot position preserved")
	}
	if r.Active() != replacement {
		t.Fatal("expected active status transferred")
	}
	if len(rec.unsubscribed) != 1 || rec.unsubscribed[0] != "aaa" {
		t.Fatalf("expected old subscription torn down, got %v", rec.unsubscribed)
	}
	if rec.subscribed[len(rec.subscribed)-1] != "bbb" {
		t.Fatalf("expected new subscription, got %v", rec.subscribed)
	}

	// Changes on the replaced force no longer reach the hook.
	before := len(rec.changed)
	old.AddGroup("", false)
	if len(rec.changed) != before {
		t.Fatal("expected old force change stream unwired")
	}
}

func TestReorderIsPresentationOnly(t *testing.T) {
	r := NewRegistry(Hooks{})
	first := newForce("aaa")
	second := newForce("bbb")
	third := newForce("ccc")
	r.AddSlot(first, force.AlignmentFriendly)
	r.AddSlot(second, force.AlignmentFriendly)
	r.AddSlot(third, force.AlignmentFriendly)

	if err := r.Reorder(2, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	order := []*force.Force{r.Slots()[0].Force, r.Slots()[1].Force, r.Slots()[2].Force}
	if order[0] != third || order[1] != first || order[2] != second {
		t.Fatal("unexpected order after reorder")
	}
	if r.Active() != first {
		t.Fatal("expected active force unaffected by reorder")
	}

	if err := r.Reorder(0, 5); err != ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestWireInstanceAfterFirstSave(t *testing.T) {
	rec := &recordedHooks{}
	r := NewRegistry(rec.hooks())
	f := newForce("")
	r.AddSlot(f, force.AlignmentFriendly)

	f.SetInstanceID("fresh")
	r.WireInstance(f)

	if len(rec.subscribed) != 1 || rec.subscribed[0] != "fresh" {
		t.Fatalf("expected subscription after save, got %v", rec.subscribed)
	}

	// Repeat wiring must not double-subscribe.
	r.WireInstance(f)
	if len(rec.subscribed) != 1 {
		t.Fatalf("expected single subscription, got %v", rec.subscribed)
	}
}
