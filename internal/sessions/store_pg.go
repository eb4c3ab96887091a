package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore keeps snapshots in Postgres. Rows past expires_at are invisible
// to Load and removed by DeleteExpired.
type PGStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s *PGStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PGStore) Save(ctx context.Context, snap Snapshot, ttl time.Duration) error {
	const query = `
INSERT INTO session_snapshots (
    id,
    active_tab,
    snapshot,
    created_at,
    updated_at,
    expires_at
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    active_tab = EXCLUDED.active_tab,
    snapshot = EXCLUDED.snapshot,
    updated_at = EXCLUDED.updated_at,
    expires_at = EXCLUDED.expires_at`

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	now := s.now()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	_, err = s.DB.ExecContext(
		ctx,
		query,
		snap.ID,
		string(snap.Tab),
		data,
		snap.CreatedAt.UTC(),
		now,
		now.Add(ttl),
	)
	return err
}

func (s *PGStore) Load(ctx context.Context, id string) (Snapshot, error) {
	const query = `
SELECT snapshot
FROM session_snapshots
WHERE id = $1 AND expires_at > $2`

	var data []byte
	err := s.DB.QueryRowContext(ctx, query, id, s.now()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return decodeSnapshot(data)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM session_snapshots WHERE id = $1`
	_, err := s.DB.ExecContext(ctx, query, id)
	return err
}

func (s *PGStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM session_snapshots WHERE expires_at <= $1`
	res, err := s.DB.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var (
	_ Store  = (*PGStore)(nil)
	_ Pruner = (*PGStore)(nil)
)
