package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/parcelwatch/tracking/pkg/carrier"
)

// snapshotsKey is the fixed key the snapshot map lives under.
const snapshotsKey = "snapshots"

// SnapshotStore holds the latest package snapshot per delivery id. It is
// the only state the refresh scheduler writes. A snapshot is replaced
// wholesale per delivery id, so a reader never observes a half-written
// package list. Writes go through to the KV so the staleness window
// survives restarts.
type SnapshotStore struct {
	kv KV

	mu        sync.RWMutex
	snapshots map[string]carrier.Snapshot
}

// NewSnapshotStore creates a snapshot store over the given KV.
func NewSnapshotStore(kv KV) *SnapshotStore {
	return &SnapshotStore{
		kv:        kv,
		snapshots: make(map[string]carrier.Snapshot),
	}
}

// Load restores persisted snapshots. A missing key leaves the store empty.
func (s *SnapshotStore) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, snapshotsKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	snapshots := make(map[string]carrier.Snapshot)
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return fmt.Errorf("decoding snapshots: %w", err)
	}

	s.mu.Lock()
	s.snapshots = snapshots
	s.mu.Unlock()
	return nil
}

// Get returns the snapshot for a delivery id, if any.
func (s *SnapshotStore) Get(id string) (carrier.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	return snap, ok
}

// All returns a copy of the snapshot map keyed by delivery id.
func (s *SnapshotStore) All() map[string]carrier.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]carrier.Snapshot, len(s.snapshots))
	for id, snap := range s.snapshots {
		out[id] = snap
	}
	return out
}

// Put replaces the snapshot for a delivery id and persists the store.
func (s *SnapshotStore) Put(ctx context.Context, id string, snap carrier.Snapshot) error {
	s.mu.Lock()
	s.snapshots[id] = snap
	raw, err := json.Marshal(s.snapshots)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding snapshots: %w", err)
	}
	return s.kv.Set(ctx, snapshotsKey, raw, 0)
}

// Delete drops the snapshot of a removed delivery.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.snapshots, id)
	raw, err := json.Marshal(s.snapshots)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding snapshots: %w", err)
	}
	return s.kv.Set(ctx, snapshotsKey, raw, 0)
}
