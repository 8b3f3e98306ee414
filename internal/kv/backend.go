package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

const snapshotKey = "snapshot"

// Backend keeps a snapshot on a KV server as one JSON document. A single key
// means a failed save leaves the previous snapshot whole.
type Backend struct {
	client *Client
}

func NewBackend(ctx context.Context, baseURL string) (*Backend, error) {
	client, err := NewClient(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return &Backend{client: client}, nil
}

func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Save(ctx context.Context, snapshot model.Snapshot) error {
	snapshot.Tasks = nonNil(snapshot.Tasks)
	snapshot.Epics = nonNil(snapshot.Epics)
	snapshot.Subtasks = nonNil(snapshot.Subtasks)
	snapshot.History = nonNil(snapshot.History)
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode %s: %w", snapshotKey, err)
	}
	return b.client.Put(ctx, snapshotKey, data)
}

// Load reads the snapshot. A server that never stored one loads as empty.
func (b *Backend) Load(ctx context.Context) (model.Snapshot, error) {
	data, err := b.client.Load(ctx, snapshotKey)
	if errors.Is(err, ErrNotFound) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return model.Snapshot{}, err
	}
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode %s: %w", snapshotKey, err)
	}
	return snapshot, nil
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
