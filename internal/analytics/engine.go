package analytics

import (
	"log/slog"
	"math"
	"time"

	"github.com/mzare-q/pairstream/internal/model"
)

// fetchMargin is how many extra candles beyond the rolling window are
// fetched per side, to survive imperfect alignment between the two series.
const fetchMargin = 10

// minObservations is the minimum per-side and aligned row count below
// which no statistics are attempted.
const minObservations = 10

// CandleSource is the read slice of the candle repository the engine needs.
type CandleSource interface {
	LatestN(symbol string, n int) ([]model.Candle, error)
}

// Engine computes sliding-window pair statistics. Each call rebuilds its
// window buffers from the candle store; no window state is shared across
// pairs. Compute never fails: every degenerate input degrades to a null
// field and an explicit status.
type Engine struct {
	source CandleSource
	window int
	logger *slog.Logger
}

// NewEngine creates an analytics engine with the given rolling window size.
func NewEngine(source CandleSource, window int, logger *slog.Logger) *Engine {
	if window <= 0 {
		window = 60
	}
	return &Engine{source: source, window: window, logger: logger}
}

// Compute derives the current PairSnapshot for one pair. A snapshot is
// always returned, even when nothing could be computed.
func (e *Engine) Compute(pairY, pairX string) model.PairSnapshot {
	snap := model.PairSnapshot{
		PairY:  pairY,
		PairX:  pairX,
		TS:     time.Now().UTC(),
		Status: model.StatusInsufficientData,
	}

	ys, xs, ok := e.alignedCloses(pairY, pairX)
	if !ok {
		return snap
	}
	if len(ys) < minObservations {
		snap.Status = model.StatusInsufficientAlignment
		return snap
	}

	// Hedge ratio over the last window of aligned closes.
	start := len(ys) - e.window
	if start < 0 {
		start = 0
	}
	beta := OLSSlope(ys[start:], xs[start:])

	if !math.IsNaN(beta) {
		snap.HedgeRatio = model.Float(beta)

		// Spread over the full aligned series, not just the window.
		spread := Spread(ys, xs, beta)
		snap.Spread = model.Float(spread[len(spread)-1])

		zWindow := min(e.window, max(5, len(spread)/2))
		if z, ok := LatestDefined(RollingZScore(spread, zWindow)); ok {
			snap.ZScore = model.Float(z)
		}
	}

	corrWindow := min(e.window, len(ys))
	if corr, ok := LatestDefined(RollingCorr(ys, xs, corrWindow)); ok {
		snap.RollingCorr = model.Float(corr)
	}

	snap.Status = model.StatusOK
	return snap
}

// SpreadADF runs the stationarity test on the pair's current spread series.
// An all-null result means the spread could not be built or is too short.
func (e *Engine) SpreadADF(pairY, pairX string) model.ADFResult {
	ys, xs, ok := e.alignedCloses(pairY, pairX)
	if !ok || len(ys) < minObservations {
		return model.ADFResult{}
	}

	start := len(ys) - e.window
	if start < 0 {
		start = 0
	}
	beta := OLSSlope(ys[start:], xs[start:])
	if math.IsNaN(beta) {
		return model.ADFResult{}
	}

	return ADF(Spread(ys, xs, beta))
}

// alignedCloses loads both close series and inner-joins them on timestamp.
// ok is false when either side is too short or cannot be read.
func (e *Engine) alignedCloses(pairY, pairX string) (ys, xs []float64, ok bool) {
	fetch := e.window + fetchMargin

	candlesY, err := e.source.LatestN(pairY, fetch)
	if err != nil {
		e.logger.Error("Candle fetch failed", "symbol", pairY, "error", err)
		return nil, nil, false
	}
	candlesX, err := e.source.LatestN(pairX, fetch)
	if err != nil {
		e.logger.Error("Candle fetch failed", "symbol", pairX, "error", err)
		return nil, nil, false
	}

	if len(candlesY) < minObservations || len(candlesX) < minObservations {
		return nil, nil, false
	}

	ys, xs = Align(Closes(candlesY), Closes(candlesX))
	return ys, xs, true
}
