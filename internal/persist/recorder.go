package persist

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FrameWriter stores batches of frames for a run.
type FrameWriter interface {
	WriteFrames(ctx context.Context, run uuid.UUID, frames []FrameRow) error
}

// Recorder buffers frame summaries and writes them in batches.
type Recorder struct {
	writer FrameWriter
	run    uuid.UUID
	every  int
	buffer []FrameRow
	log    *zap.Logger
}

func NewRecorder(writer FrameWriter, run uuid.UUID, every int, log *zap.Logger) *Recorder {
	if every <= 0 {
		every = 1
	}
	return &Recorder{
		writer: writer,
		run:    run,
		every:  every,
		buffer: make([]FrameRow, 0, every),
		log:    log,
	}
}

// Record adds a frame and flushes once the batch is full.
func (r *Recorder) Record(ctx context.Context, frame FrameRow) error {
	r.buffer = append(r.buffer, frame)
	if len(r.buffer) < r.every {
		return nil
	}
	return r.Flush(ctx)
}

// Flush writes every buffered frame. The buffer is kept on failure so a
// later flush retries it.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}
	if err := r.writer.WriteFrames(ctx, r.run, r.buffer); err != nil {
		r.log.Warn("journal flush failed", zap.Int("frames", len(r.buffer)), zap.Error(err))
		return err
	}
	r.log.Debug("journal flushed",
		zap.Stringer("run", r.run),
		zap.Int("frames", len(r.buffer)),
	)
	clear(r.buffer)
	r.buffer = r.buffer[:0]
	return nil
}

// Pending returns how many frames wait for the next flush.
func (r *Recorder) Pending() int { return len(r.buffer) }
