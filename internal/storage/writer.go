package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/mzare-q/pairstream/internal/model"
)

const insertRetries = 3

// WriterConfig holds batching parameters for the tick writer.
type WriterConfig struct {
	// BatchSize is the maximum number of ticks to accumulate before flushing.
	BatchSize int

	// BatchTimeout is the maximum time to wait before flushing a partial batch.
	BatchTimeout time.Duration
}

// Writer sits between the feed connectors and the tick store. Connectors
// push ticks without blocking on persistence; the writer accumulates them
// and flushes batches to the store. Insert failures are retried a bounded
// number of times and then dropped with a log entry — a store outage must
// never stall the feed.
type Writer struct {
	store  TickStore
	logger *slog.Logger
	cfg    WriterConfig
	in     chan model.Tick
}

// NewWriter creates a batching tick writer.
func NewWriter(store TickStore, logger *slog.Logger, cfg WriterConfig) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 2 * time.Second
	}
	return &Writer{
		store:  store,
		logger: logger,
		cfg:    cfg,
		in:     make(chan model.Tick, cfg.BatchSize*4),
	}
}

// Push queues a tick for persistence. If the buffer is full the tick is
// dropped with a log entry rather than blocking the connector.
func (w *Writer) Push(tick model.Tick) {
	select {
	case w.in <- tick:
	default:
		w.logger.Warn("Tick buffer full, dropping tick", "symbol", tick.Symbol)
	}
}

// Run consumes queued ticks until ctx is cancelled, flushing when the batch
// is full or the batch timeout elapses. Remaining ticks are flushed on
// shutdown.
func (w *Writer) Run(ctx context.Context) {
	batch := make([]model.Tick, 0, w.cfg.BatchSize)

	ticker := time.NewTicker(w.cfg.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(ctx, batch)
		batch = batch[:0]
		ticker.Reset(w.cfg.BatchTimeout)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			w.logger.Info("Tick writer stopped")
			return

		case <-ticker.C:
			flush()

		case tick := <-w.in:
			batch = append(batch, tick)
			if len(batch) >= w.cfg.BatchSize {
				flush()
			}
		}
	}
}

// flush writes one batch, retrying transient failures before giving up.
func (w *Writer) flush(ctx context.Context, batch []model.Tick) {
	for attempt := 1; attempt <= insertRetries; attempt++ {
		err := w.store.InsertTicks(ctx, batch)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		w.logger.Error("Tick insert failed",
			"attempt", attempt,
			"batch_size", len(batch),
			"error", err)

		if attempt < insertRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}

	w.logger.Error("Dropping tick batch after retries", "batch_size", len(batch))
}
