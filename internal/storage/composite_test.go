package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/mekforge/forcesync/internal/force"
)

type memLocal struct {
	records map[string]Record
}

func newMemLocal() *memLocal { return &memLocal{records: map[string]Record{}} }

func (m *memLocal) Get(_ context.Context, id string) (Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memLocal) Put(_ context.Context, rec Record) error {
	m.records[rec.Snapshot.InstanceID] = rec
	return nil
}

func (m *memLocal) PutSnapshot(_ context.Context, snap force.Snapshot) error {
	rec := m.records[snap.InstanceID]
	rec.Snapshot = snap
	m.records[snap.InstanceID] = rec
	return nil
}

func (m *memLocal) Delete(_ context.Context, id string) error {
	delete(m.records, id)
	return nil
}

type memRemote struct {
	records map[string]Record
	err     error
	puts    int
}

func newMemRemote() *memRemote { return &memRemote{records: map[string]Record{}} }

func (m *memRemote) Get(_ context.Context, id string) (Record, error) {
	if m.err != nil {
		return Record{}, m.err
	}
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *memRemote) Put(_ context.Context, snap force.Snapshot, _ bool) error {
	if m.err != nil {
		return m.err
	}
	m.puts++
	m.records[snap.InstanceID] = Record{Snapshot: snap, Owned: true}
	return nil
}

func (m *memRemote) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.records, id)
	return nil
}

func snap(id, name string) force.Snapshot {
	return force.Snapshot{InstanceID: id, Name: name}
}

func TestCompositeGetPrefersOwnedLocal(t *testing.T) {
	local := newMemLocal()
	remote := newMemRemote()
	local.records["abc"] = Record{Snapshot: snap("abc", "local"), Owned: true}
	remote.records["abc"] = Record{Snapshot: snap("abc", "remote"), Owned: true}

	store := NewComposite(local, remote)
	rec, err := store.GetForce(context.Background(), "abc", true)
	if err != nil {
		t.Fatalf("GetForce() error = %v", err)
	}
	if rec.Snapshot.Name != "local" {
		t.Fatalf("got %q, want the owned local copy", rec.Snapshot.Name)
	}

	rec, err = store.GetForce(context.Background(), "abc", false)
	if err != nil {
		t.Fatalf("GetForce() error = %v", err)
	}
	if rec.Snapshot.Name != "remote" {
		t.Fatalf("got %q, want the remote version", rec.Snapshot.Name)
	}
}

func TestCompositeGetFallsBackWhenRemoteUnreachable(t *testing.T) {
	local := newMemLocal()
	remote := newMemRemote()
	local.records["abc"] = Record{Snapshot: snap("abc", "cached")}
	remote.err = errors.New("connection refused")

	store := NewComposite(local, remote)
	rec, err := store.GetForce(context.Background(), "abc", false)
	if err != nil {
		t.Fatalf("GetForce() error = %v", err)
	}
	if rec.Snapshot.Name != "cached" {
		t.Fatalf("got %q, want the cached copy", rec.Snapshot.Name)
	}
}

func TestCompositeGetNotFoundDoesNotFallBack(t *testing.T) {
	local := newMemLocal()
	remote := newMemRemote()
	local.records["abc"] = Record{Snapshot: snap("abc", "stale")}

	store := NewComposite(local, remote)
	if _, err := store.GetForce(context.Background(), "abc", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetForce() error = %v, want ErrNotFound", err)
	}
}

func TestCompositeSaveSkipsRemoteForNonOwned(t *testing.T) {
	local := newMemLocal()
	remote := newMemRemote()
	store := NewComposite(local, remote)

	if err := store.SaveForce(context.Background(), Record{Snapshot: snap("abc", "mirror")}, false); err != nil {
		t.Fatalf("SaveForce() error = %v", err)
	}
	if remote.puts != 0 {
		t.Error("non-owned records must not be written remotely")
	}
	if _, ok := local.records["abc"]; !ok {
		t.Error("non-owned records are still cached locally")
	}
}

func TestCompositeDeleteLocalLeavesRemote(t *testing.T) {
	local := newMemLocal()
	remote := newMemRemote()
	local.records["abc"] = Record{Snapshot: snap("abc", "x")}
	remote.records["abc"] = Record{Snapshot: snap("abc", "x")}

	store := NewComposite(local, remote)
	if err := store.DeleteLocalForce(context.Background(), "abc"); err != nil {
		t.Fatalf("DeleteLocalForce() error = %v", err)
	}
	if _, ok := local.records["abc"]; ok {
		t.Error("local entry should be gone")
	}
	if _, ok := remote.records["abc"]; !ok {
		t.Error("remote record must survive a local-only delete")
	}
}

func TestCompositeOfflineOnly(t *testing.T) {
	local := newMemLocal()
	store := NewComposite(local, nil)

	if err := store.SaveForce(context.Background(), Record{Snapshot: snap("abc", "x"), Owned: true}, false); err != nil {
		t.Fatalf("SaveForce() error = %v", err)
	}
	rec, err := store.GetForce(context.Background(), "abc", false)
	if err != nil {
		t.Fatalf("GetForce() error = %v", err)
	}
	if rec.Snapshot.Name != "x" {
		t.Fatalf("got %q, want x", rec.Snapshot.Name)
	}
}
