package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/segments/internal/core/ecs"
)

// RunRow is one simulation run.
type RunRow struct {
	ID             uuid.UUID
	Name           string
	ScenarioDigest []byte
	StartedAt      time.Time
	FinishedAt     *time.Time
	Frames         int
}

// SegmentRow is the occupancy of one segment at the end of a frame.
type SegmentRow struct {
	Segment  int
	Types    string
	Count    int
	Capacity int
}

// FrameRow summarizes one frame.
type FrameRow struct {
	Frame    int
	Entities int
	Blocks   int
	Duration time.Duration
	Segments []SegmentRow
}

// Snapshot captures the storage layout of w after a frame.
func Snapshot(w *ecs.World, frame, blocks int, d time.Duration) FrameRow {
	row := FrameRow{
		Frame:    frame,
		Entities: w.Entities().Len(),
		Blocks:   blocks,
		Duration: d,
	}
	for _, s := range w.Segments() {
		names := make([]string, 0, len(s.Metas()))
		for _, m := range s.Metas() {
			names = append(names, m.Name)
		}
		row.Segments = append(row.Segments, SegmentRow{
			Segment:  s.Index(),
			Types:    strings.Join(names, ","),
			Count:    s.Count(),
			Capacity: s.Capacity(),
		})
	}
	return row
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// StartRun records a new run and returns its identifier.
func (r *JournalRepo) StartRun(ctx context.Context, name string, digest []byte) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO runs (id, name, scenario_digest) VALUES ($1, $2, $3)`,
		id, name, digest,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// WriteFrames writes a batch of frames and their segments in one transaction.
func (r *JournalRepo) WriteFrames(ctx context.Context, run uuid.UUID, frames []FrameRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, f := range frames {
		batch.Queue(
			`INSERT INTO frames (run_id, frame, entities, segments, blocks, duration_us)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			run, f.Frame, f.Entities, len(f.Segments), f.Blocks, f.Duration.Microseconds(),
		)
		for _, s := range f.Segments {
			batch.Queue(
				`INSERT INTO segment_stats (run_id, frame, segment, types, count, capacity)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				run, f.Frame, s.Segment, s.Types, s.Count, s.Capacity,
			)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE runs SET frames = frames + $2 WHERE id = $1`,
		run, len(frames),
	); err != nil {
		return fmt.Errorf("journal count: %w", err)
	}
	return tx.Commit(ctx)
}

// FinishRun stamps the end of a run.
func (r *JournalRepo) FinishRun(ctx context.Context, run uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE runs SET finished_at = NOW() WHERE id = $1`,
		run,
	)
	return err
}

// LoadRun returns the run with the given id, or nil if there is none.
func (r *JournalRepo) LoadRun(ctx context.Context, id uuid.UUID) (*RunRow, error) {
	row := &RunRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, scenario_digest, started_at, finished_at, frames
		 FROM runs WHERE id = $1`, id,
	).Scan(&row.ID, &row.Name, &row.ScenarioDigest, &row.StartedAt, &row.FinishedAt, &row.Frames)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
