// Package aggregator turns raw ticks into tumbling-window OHLCV candles.
// It is a pull-based batch job: on a fixed cadence it re-reads the recent
// ticks for every symbol and inserts any candle not already stored, so the
// amount of work per cycle is bounded regardless of tick arrival rate.
package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/mzare-q/pairstream/internal/model"
	"github.com/mzare-q/pairstream/internal/storage"
)

// CandleSink is the slice of the candle repository the aggregator needs.
type CandleSink interface {
	Exists(symbol string, openTime time.Time) (bool, error)
	Create(candle *model.Candle) error
}

// Config holds aggregation parameters.
type Config struct {
	// Interval is the tumbling-window length (e.g. one minute).
	Interval time.Duration

	// Lookback is how far back each cycle re-reads ticks. Overlapping
	// lookbacks are safe: existing candles are skipped.
	Lookback time.Duration
}

// Aggregator reads recent ticks and produces candles.
type Aggregator struct {
	ticks   storage.TickStore
	candles CandleSink
	symbols []string
	logger  *slog.Logger
	cfg     Config

	// now is stubbed in tests.
	now func() time.Time
}

// New creates an aggregator over the given symbols.
func New(ticks storage.TickStore, candles CandleSink, symbols []string, logger *slog.Logger, cfg Config) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = time.Hour
	}
	return &Aggregator{
		ticks:   ticks,
		candles: candles,
		symbols: symbols,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Aggregate buckets recent ticks for one symbol into tumbling windows and
// inserts each resulting candle unless one already exists for its interval
// start. It returns only the candles inserted this run.
func (a *Aggregator) Aggregate(ctx context.Context, symbol string) ([]model.Candle, error) {
	since := a.now().UTC().Add(-a.cfg.Lookback)
	ticks, err := a.ticks.QueryTicks(ctx, symbol, since)
	if err != nil {
		return nil, err
	}
	if len(ticks) == 0 {
		return nil, nil
	}

	buckets := make(map[time.Time]*model.Candle)
	for _, t := range ticks {
		start := t.TS.UTC().Truncate(a.cfg.Interval)
		c, ok := buckets[start]
		if !ok {
			buckets[start] = &model.Candle{
				Symbol:   symbol,
				OpenTime: start,
				Open:     t.Price,
				High:     t.Price,
				Low:      t.Price,
				Close:    t.Price,
				Volume:   t.Size,
			}
			continue
		}

		// Ticks arrive ordered by ts, so the running close is always the
		// latest trade in the bucket.
		if t.Price > c.High {
			c.High = t.Price
		}
		if t.Price < c.Low {
			c.Low = t.Price
		}
		c.Close = t.Price
		c.Volume += t.Size
	}

	starts := make([]time.Time, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var inserted []model.Candle
	for _, start := range starts {
		exists, err := a.candles.Exists(symbol, start)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}

		candle := buckets[start]
		if err := a.candles.Create(candle); err != nil {
			return inserted, err
		}
		inserted = append(inserted, *candle)
	}

	return inserted, nil
}

// Run aggregates every symbol once per interval until ctx is cancelled.
// A failure for one symbol is logged and does not affect the others.
func (a *Aggregator) Run(ctx context.Context) {
	a.logger.Info("Starting candle aggregator",
		"symbols", len(a.symbols),
		"interval", a.cfg.Interval,
		"lookback", a.cfg.Lookback)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Candle aggregator stopped")
			return
		case <-ticker.C:
			for _, symbol := range a.symbols {
				candles, err := a.Aggregate(ctx, symbol)
				if err != nil {
					a.logger.Error("Aggregation failed", "symbol", symbol, "error", err)
					continue
				}
				if len(candles) > 0 {
					a.logger.Info("Inserted candles", "symbol", symbol, "count", len(candles))
				}
			}
		}
	}
}
