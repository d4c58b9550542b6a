package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// deleteChunkSize bounds each retention delete to avoid holding a
// long-running lock over the whole metric_events table.
const deleteChunkSize = 5000

// RetentionSweeper periodically deletes metric_events rows older than a
// configured retention window, in fixed-size chunks rather than one
// unbounded DELETE. Start/Stop are idempotent.
type RetentionSweeper struct {
	db              *sql.DB
	retentionDays   int
	sweepInterval   time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRetentionSweeper creates a sweeper over client's connection pool.
// retentionDays <= 0 disables sweeping entirely (Start becomes a no-op).
func NewRetentionSweeper(client *Client, retentionDays int, sweepInterval time.Duration) *RetentionSweeper {
	return &RetentionSweeper{
		db:            client.db,
		retentionDays: retentionDays,
		sweepInterval: sweepInterval,
	}
}

// Start launches the background sweep loop. A second call is a no-op.
func (s *RetentionSweeper) Start(ctx context.Context) {
	if s.retentionDays <= 0 || s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention sweeper started", "retention_days", s.retentionDays, "interval", s.sweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *RetentionSweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention sweeper stopped")
}

func (s *RetentionSweeper) run(ctx context.Context) {
	defer close(s.done)

	s.sweepUntilDry(ctx)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepUntilDry(ctx)
		}
	}
}

// sweepUntilDry deletes expired rows in deleteChunkSize batches until a
// batch comes back empty, so a sweeper that's been down for a while
// doesn't leave a backlog until the next tick.
func (s *RetentionSweeper) sweepUntilDry(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	total := 0
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := s.deleteChunk(ctx, cutoff)
		if err != nil {
			slog.Error("retention sweep failed", "error", err)
			return
		}
		total += n
		if n < deleteChunkSize {
			break
		}
	}
	if total > 0 {
		slog.Info("retention sweep removed expired events", "count", total, "cutoff", cutoff)
	}
}

func (s *RetentionSweeper) deleteChunk(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM metric_events
		WHERE event_id IN (
			SELECT event_id FROM metric_events
			WHERE event_timestamp < $1
			LIMIT $2
		)
	`, cutoff, deleteChunkSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	return int(affected), nil
}
