package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mekforge/forcesync/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPutAndLookupUnit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	unit := catalog.Unit{
		Name:     "Locust LCT-1V",
		Faction:  "Lyran Commonwealth",
		Era:      "Succession Wars",
		Tech:     "Inner Sphere",
		CrewSize: 1,
	}
	if err := store.PutUnit(ctx, unit); err != nil {
		t.Fatalf("put unit: %v", err)
	}

	got, ok := store.Lookup("Locust LCT-1V")
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if got.Faction != unit.Faction || got.Era != unit.Era || got.Tech != unit.Tech {
		t.Fatalf("unexpected unit metadata %+v", got)
	}
	if got.GameSystem != catalog.GameSystemClassic {
		t.Fatalf("expected classic default, got %q", got.GameSystem)
	}

	if _, ok := store.Lookup("Atlas AS7-D"); ok {
		t.Fatal("expected lookup miss")
	}
}

func TestPutUnitRejectsEmptyName(t *testing.T) {
	store := openTestStore(t)
	if err := store.PutUnit(context.Background(), catalog.Unit{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPutUnitReplaces(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutUnit(ctx, catalog.Unit{Name: "Atlas AS7-D", Faction: "Federated Suns"}); err != nil {
		t.Fatalf("put unit: %v", err)
	}
	if err := store.PutUnit(ctx, catalog.Unit{Name: "Atlas AS7-D", Faction: "ComStar"}); err != nil {
		t.Fatalf("replace unit: %v", err)
	}
	got, ok := store.Lookup("Atlas AS7-D")
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if got.Faction != "ComStar" {
		t.Fatalf("expected replaced faction, got %q", got.Faction)
	}
}
