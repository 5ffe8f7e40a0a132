// Package storage defines the persistence boundary for force records:
// a local cache plus a remote sharable store, addressed through a single
// ForceStore contract.
package storage

import (
	"context"
	"errors"

	"github.com/mekforge/forcesync/internal/force"
)

// ErrNotFound indicates a requested force record is missing.
var ErrNotFound = errors.New("force record not found")

// Record is a stored force: its serialized snapshot plus the ownership
// flag resolved for the current client.
type Record struct {
	Snapshot force.Snapshot
	// Owned reports whether this client holds write authority over the
	// stored record.
	Owned bool
}

// ForceStore persists force records.
type ForceStore interface {
	// GetForce fetches the record for id. When preferOwned is true, an
	// owned local copy wins over the remote version.
	GetForce(ctx context.Context, id string, preferOwned bool) (Record, error)
	// SaveForce writes the record to both the local cache and the remote
	// store. overwrite forces the remote write even when the stored
	// version is newer.
	SaveForce(ctx context.Context, rec Record, overwrite bool) error
	// DeleteForce removes the record everywhere the client has authority.
	DeleteForce(ctx context.Context, id string) error
	// DeleteLocalForce removes only the local cache entry. Used during
	// ownership adoption, where the client has no authority over the
	// remote record.
	DeleteLocalForce(ctx context.Context, id string) error
	// SaveSerializedLocal writes a snapshot into the local cache without
	// touching the remote store.
	SaveSerializedLocal(ctx context.Context, snap force.Snapshot) error
}
