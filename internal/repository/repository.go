// Package repository persists store snapshots as a single versioned blob
// in a key-value backend. Postgres (pgx), SQLite (gorm), Redis and an
// in-memory map are supported.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	pkgerrors "github.com/pkg/errors"
)

// ErrNotFound is returned by a KV when the requested key does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnsupportedVersion is returned when a stored blob was written by an
// unknown snapshot format.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// DefaultKey is the key the snapshot blob is stored under.
const DefaultKey = "signup_snapshot"

// KV is a minimal blob store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// SnapshotRepository loads and saves the full store snapshot.
type SnapshotRepository struct {
	kv  KV
	key string
}

// NewSnapshotRepository constructs a SnapshotRepository over kv.
// An empty key selects DefaultKey.
func NewSnapshotRepository(kv KV, key string) *SnapshotRepository {
	if key == "" {
		key = DefaultKey
	}
	return &SnapshotRepository{kv: kv, key: key}
}

// Load returns the stored snapshot. A missing blob loads as an empty
// snapshot; a malformed one is an error.
func (r *SnapshotRepository) Load(ctx context.Context) (model.Snapshot, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return model.Snapshot{Version: model.SnapshotVersion}, nil
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(raw)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Save replaces the stored snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap model.Snapshot) error {
	raw, err := EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := r.kv.Put(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// EncodeSnapshot serializes snap, stamping the current format version.
func EncodeSnapshot(snap model.Snapshot) ([]byte, error) {
	snap.Version = model.SnapshotVersion
	if snap.Activities == nil {
		snap.Activities = []model.Activity{}
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode snapshot")
	}
	return raw, nil
}

// DecodeSnapshot parses a blob produced by EncodeSnapshot.
func DecodeSnapshot(raw []byte) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, pkgerrors.Wrap(err, "decode snapshot")
	}
	if snap.Version != model.SnapshotVersion {
		return model.Snapshot{}, pkgerrors.WithStack(fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version))
	}
	for i := range snap.Activities {
		if snap.Activities[i].Registrations == nil {
			snap.Activities[i].Registrations = []model.Registration{}
		}
	}
	return snap, nil
}
