package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SnapshotRow is one archived snapshot. Body holds the compressed file
// bytes exactly as the snapshot package writes them.
type SnapshotRow struct {
	RunID     uuid.UUID
	Tick      uint64
	Phase     string
	Digest    string
	Body      []byte
	CreatedAt time.Time
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save stores a snapshot, replacing any earlier one at the same tick.
func (r *SnapshotRepo) Save(ctx context.Context, s SnapshotRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO run_snapshots (run_id, tick, phase, digest, body)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, tick) DO UPDATE
		 SET phase = EXCLUDED.phase, digest = EXCLUDED.digest, body = EXCLUDED.body, created_at = now()`,
		s.RunID.String(), int64(s.Tick), s.Phase, s.Digest, s.Body,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot of a run.
func (r *SnapshotRepo) Latest(ctx context.Context, runID uuid.UUID) (*SnapshotRow, error) {
	var (
		s    SnapshotRow
		tick int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT tick, phase, digest, body, created_at FROM run_snapshots
		 WHERE run_id = $1 ORDER BY tick DESC LIMIT 1`, runID.String(),
	).Scan(&tick, &s.Phase, &s.Digest, &s.Body, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	s.RunID = runID
	s.Tick = uint64(tick)
	return &s, nil
}

// Prune keeps the newest keep snapshots of a run and deletes the rest.
func (r *SnapshotRepo) Prune(ctx context.Context, runID uuid.UUID, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM run_snapshots WHERE run_id = $1 AND tick NOT IN (
		     SELECT tick FROM run_snapshots WHERE run_id = $1 ORDER BY tick DESC LIMIT $2
		 )`, runID.String(), keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
