package force

import (
	"fmt"
	"testing"
	"time"

	"github.com/mekforge/forcesync/internal/catalog"
)

func testClock() func() time.Time {
	at := time.Date(3025, time.March, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		at = at.Add(time.Second)
		return at
	}
}

func seqUnitIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("unit-%d", n)
	}
}

func locust() catalog.Unit {
	return catalog.Unit{Name: "Locust LCT-1V", Faction: "Lyran Commonwealth", CrewSize: 1}
}

func atlas() catalog.Unit {
	return catalog.Unit{Name: "Atlas AS7-D", Faction: "Federated Suns", CrewSize: 1}
}

func newTestForce() *Force {
	return New(Config{Name: "Test Force", Owned: true, Now: testClock(), UnitIDGen: seqUnitIDs()})
}

func TestChangeNotificationOrder(t *testing.T) {
	f := newTestForce()
	var events []string
	f.OnChange(func() { events = append(events, "first") })
	f.OnChange(func() { events = append(events, "second") })

	g := f.AddGroup("", false)
	g.AddUnit(locust())

	if len(events) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(events))
	}
	for i := 0; i < len(events); i += 2 {
		if events[i] != "first" || events[i+1] != "second" {
			t.Fatalf("listeners out of registration order: %v", events)
		}
	}
}

func TestOnChangeRemove(t *testing.T) {
	f := newTestForce()
	calls := 0
	remove := f.OnChange(func() { calls++ })

	f.AddGroup("", false)
	remove()
	f.AddGroup("", false)

	if calls != 1 {
		t.Fatalf("expected 1 call after removal, got %d", calls)
	}
}

func TestBatchCoalescesToOneNotification(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)
	u := g.AddUnit(locust())

	calls := 0
	f.OnChange(func() { calls++ })

	f.Batch(func() {
		if err := u.SetCrewSkill(0, SkillGunnery, 3); err != nil {
			t.Fatalf("set skill: %v", err)
		}
		if err := u.SetCrewSkill(0, SkillPiloting, 4); err != nil {
			t.Fatalf("set skill: %v", err)
		}
		u.MarkModified()
	})

	if calls != 1 {
		t.Fatalf("expected exactly one coalesced notification, got %d", calls)
	}
}

func TestBatchEmitsNothingWhenUntouched(t *testing.T) {
	f := newTestForce()
	calls := 0
	f.OnChange(func() { calls++ })

	f.Batch(func() {})

	if calls != 0 {
		t.Fatalf("expected no notification, got %d", calls)
	}
}

func TestBatchReenablesAfterPanic(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)

	func() {
		defer func() { _ = recover() }()
		f.Batch(func() {
			g.AddUnit(locust())
			panic("edit failed")
		})
	}()

	calls := 0
	f.OnChange(func() { calls++ })
	g.AddUnit(atlas())
	if calls != 1 {
		t.Fatalf("expected notifications re-enabled after panic, got %d calls", calls)
	}
}

func TestNestedBatch(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)
	calls := 0
	f.OnChange(func() { calls++ })

	f.Batch(func() {
		g.AddUnit(locust())
		f.Batch(func() {
			g.AddUnit(atlas())
		})
	})

	if calls != 1 {
		t.Fatalf("expected one notification for nested batch, got %d", calls)
	}
}

func TestMoveUnitTransfersOwnership(t *testing.T) {
	f := newTestForce()
	first := f.AddGroup("Alpha", true)
	second := f.AddGroup("Bravo", true)
	u := first.AddUnit(locust())

	if err := f.MoveUnit(u.ID(), second); err != nil {
		t.Fatalf("move unit: %v", err)
	}
	if len(first.Units()) != 0 {
		t.Fatal("expected unit removed from source group")
	}
	if len(second.Units()) != 1 || second.Units()[0] != u {
		t.Fatal("expected same unit object in destination group")
	}
	if total := len(f.Units()); total != 1 {
		t.Fatalf("expected 1 unit total, got %d", total)
	}
}

func TestMoveUnitRejectsForeignGroup(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)
	u := g.AddUnit(locust())

	other := newTestForce()
	foreign := other.AddGroup("", false)

	if err := f.MoveUnit(u.ID(), foreign); err != ErrGroupNotFound {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestRemoveLastUnitLeavesEmptyForce(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)
	u := g.AddUnit(locust())

	if f.Empty() {
		t.Fatal("expected non-empty force")
	}
	if err := f.RemoveUnit(u.ID()); err != nil {
		t.Fatalf("remove unit: %v", err)
	}
	if !f.Empty() {
		t.Fatal("expected empty force after removing last unit")
	}
}

func TestNameLockBlocksAutoName(t *testing.T) {
	f := newTestForce()
	f.SetName("Davion Guards")
	f.SetAutoName("Generated Force")
	if f.Name() != "Davion Guards" {
		t.Fatalf("expected locked name, got %q", f.Name())
	}

	f.SetNameLock(false)
	f.SetAutoName("Generated Force")
	if f.Name() != "Generated Force" {
		t.Fatalf("expected auto name after unlock, got %q", f.Name())
	}
}

func TestGroupNameLock(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)
	g.SetAutoName("First Lance")
	if g.Name() != "First Lance" {
		t.Fatalf("expected auto name, got %q", g.Name())
	}
	g.SetName("Command Lance")
	g.SetAutoName("First Lance")
	if g.Name() != "Command Lance" {
		t.Fatalf("expected locked name, got %q", g.Name())
	}
	if !g.NameLock() {
		t.Fatal("expected name lock after manual rename")
	}
}

func TestReleaseDropsUnits(t *testing.T) {
	f := newTestForce()
	g := f.AddGroup("", false)
	g.AddUnit(locust())

	f.Release()
	if len(f.Groups()) != 0 {
		t.Fatal("expected groups released")
	}
	// Idempotent.
	f.Release()
}
