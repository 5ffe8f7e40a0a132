package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mekforge/forcesync/internal/force"
)

// Local is the cache-side contract satisfied by the SQLite store.
type Local interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, rec Record) error
	PutSnapshot(ctx context.Context, snap force.Snapshot) error
	Delete(ctx context.Context, id string) error
}

// Remote is the sharable-store contract satisfied by the HTTP client.
type Remote interface {
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, snap force.Snapshot, overwrite bool) error
	Delete(ctx context.Context, id string) error
}

// Composite implements ForceStore over a local cache and a remote store.
type Composite struct {
	local  Local
	remote Remote
}

// NewComposite wires a local cache and a remote store into one ForceStore.
// remote may be nil for an offline-only configuration.
func NewComposite(local Local, remote Remote) *Composite {
	return &Composite{local: local, remote: remote}
}

// GetForce implements ForceStore. preferOwned returns an owned local copy
// without consulting the remote store; otherwise the remote version wins
// and the local cache is a fallback for offline reads.
func (c *Composite) GetForce(ctx context.Context, id string, preferOwned bool) (Record, error) {
	if preferOwned && c.local != nil {
		if rec, err := c.local.Get(ctx, id); err == nil && rec.Owned {
			return rec, nil
		}
	}
	if c.remote != nil {
		rec, err := c.remote.Get(ctx, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) && c.local != nil {
			// Remote unreachable: fall back to whatever is cached.
			if cached, cacheErr := c.local.Get(ctx, id); cacheErr == nil {
				return cached, nil
			}
		}
		return Record{}, err
	}
	if c.local == nil {
		return Record{}, fmt.Errorf("no store configured")
	}
	return c.local.Get(ctx, id)
}

// SaveForce implements ForceStore: cache first, then remote best-effort.
func (c *Composite) SaveForce(ctx context.Context, rec Record, overwrite bool) error {
	if c.local != nil {
		if err := c.local.Put(ctx, rec); err != nil {
			return err
		}
	}
	if c.remote != nil && rec.Owned {
		if err := c.remote.Put(ctx, rec.Snapshot, overwrite); err != nil {
			return fmt.Errorf("save remote force: %w", err)
		}
	}
	return nil
}

// DeleteForce implements ForceStore.
func (c *Composite) DeleteForce(ctx context.Context, id string) error {
	var errs []error
	if c.remote != nil {
		if err := c.remote.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if c.local != nil {
		if err := c.local.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteLocalForce implements ForceStore; the remote store is never
// touched.
func (c *Composite) DeleteLocalForce(ctx context.Context, id string) error {
	if c.local == nil {
		return nil
	}
	return c.local.Delete(ctx, id)
}

// SaveSerializedLocal implements ForceStore.
func (c *Composite) SaveSerializedLocal(ctx context.Context, snap force.Snapshot) error {
	if c.local == nil {
		return nil
	}
	return c.local.PutSnapshot(ctx, snap)
}
