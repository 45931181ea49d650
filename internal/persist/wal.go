package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ironforge/outpost/internal/command"
)

// CommandWAL is the write-ahead log of accepted commands. A run resumed
// from its latest snapshot replays the unprocessed tail.
type CommandWAL struct {
	db *DB
}

func NewCommandWAL(db *DB) *CommandWAL {
	return &CommandWAL{db: db}
}

// Append atomically writes a batch of commands in a single transaction.
// If it fails, the caller must not enqueue the batch.
func (r *CommandWAL) Append(ctx context.Context, runID uuid.UUID, cmds []command.Command) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("wal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range cmds {
		env, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("wal encode: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO command_wal (run_id, target_tick, actor_id, kind, envelope)
			 VALUES ($1, $2, $3, $4, $5)`,
			runID.String(), int64(c.TargetTick), int64(c.ActorID), string(c.Payload.Kind()), env,
		); err != nil {
			return fmt.Errorf("wal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Pending returns the unprocessed commands of a run with target tick at or
// after fromTick, in append order.
func (r *CommandWAL) Pending(ctx context.Context, runID uuid.UUID, fromTick uint64) ([]command.Command, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT envelope FROM command_wal
		 WHERE run_id = $1 AND processed = FALSE AND target_tick >= $2
		 ORDER BY id`, runID.String(), int64(fromTick))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []command.Command
	for rows.Next() {
		var env []byte
		if err := rows.Scan(&env); err != nil {
			return nil, err
		}
		var c command.Command
		if err := json.Unmarshal(env, &c); err != nil {
			return nil, fmt.Errorf("wal decode: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkProcessed flags every command that ran before tick (called after a
// snapshot at tick was archived).
func (r *CommandWAL) MarkProcessed(ctx context.Context, runID uuid.UUID, tick uint64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE command_wal SET processed = TRUE
		 WHERE run_id = $1 AND processed = FALSE AND target_tick < $2`,
		runID.String(), int64(tick),
	)
	return err
}
