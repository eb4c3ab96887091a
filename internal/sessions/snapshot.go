package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recruitment-backend/internal/interview"
	"recruitment-backend/internal/jobspec"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Snapshot is the persisted form of a session: its tab and the state of the
// mounted flow.
type Snapshot struct {
	ID        string           `json:"id"`
	Tab       Tab              `json:"tab"`
	JobSpec   *jobspec.State   `json:"jobSpec,omitempty"`
	Interview *interview.State `json:"interview,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Store persists snapshots so a session can be resumed by another process.
type Store interface {
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// Pruner is implemented by stores that need expired rows removed explicitly.
type Pruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
