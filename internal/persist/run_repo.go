package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RunRow represents a row from the runs table.
type RunRow struct {
	RunID       uuid.UUID
	Difficulty  string
	Seed        uint64
	StartedAt   time.Time
	EndedAt     *time.Time
	FinalTick   *uint64
	FinalPhase  *string
	FinalDigest *string
}

// RunRepo archives one row per simulated run.
type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create registers a new run and returns its ID.
func (r *RunRepo) Create(ctx context.Context, difficulty string, seed uint64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO runs (run_id, difficulty, seed) VALUES ($1, $2, $3)`,
		id.String(), difficulty, int64(seed),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// Finish records how a run ended.
func (r *RunRepo) Finish(ctx context.Context, id uuid.UUID, tick uint64, phase, digest string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE runs SET ended_at = now(), final_tick = $2, final_phase = $3, final_digest = $4
		 WHERE run_id = $1`,
		id.String(), int64(tick), phase, digest,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, id uuid.UUID) (*RunRow, error) {
	var (
		row       RunRow
		rawID     string
		seed      int64
		finalTick *int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT run_id::text, difficulty, seed, started_at, ended_at, final_tick, final_phase, final_digest
		 FROM runs WHERE run_id = $1`, id.String(),
	).Scan(&rawID, &row.Difficulty, &seed, &row.StartedAt, &row.EndedAt, &finalTick, &row.FinalPhase, &row.FinalDigest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if row.RunID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	row.Seed = uint64(seed)
	if finalTick != nil {
		t := uint64(*finalTick)
		row.FinalTick = &t
	}
	return &row, nil
}

// Recent lists the newest runs first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]RunRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT run_id::text, difficulty, seed, started_at
		 FROM runs ORDER BY started_at DESC, run_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			row   RunRow
			rawID string
			seed  int64
		)
		if err := rows.Scan(&rawID, &row.Difficulty, &seed, &row.StartedAt); err != nil {
			return nil, err
		}
		if row.RunID, err = uuid.Parse(rawID); err != nil {
			return nil, err
		}
		row.Seed = uint64(seed)
		out = append(out, row)
	}
	return out, rows.Err()
}
