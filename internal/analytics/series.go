// Package analytics derives rolling pairs-trading statistics from candle
// close series: hedge ratio, spread, z-score, rolling correlation and an
// augmented Dickey-Fuller stationarity test.
//
// Nothing in this package returns an error for insufficient or degenerate
// data; undefined values are NaN internally and null at the snapshot edge.
package analytics

import (
	"math"
	"time"

	"github.com/mzare-q/pairstream/internal/model"
)

// Point is one observation of a time-indexed series.
type Point struct {
	TS    time.Time
	Value float64
}

// Series is an ascending time-indexed value series.
type Series []Point

// Closes extracts the close series from candles ordered oldest to newest.
func Closes(candles []model.Candle) Series {
	s := make(Series, 0, len(candles))
	for _, c := range candles {
		s = append(s, Point{TS: c.OpenTime, Value: c.Close})
	}
	return s
}

// Align inner-joins two ascending series on timestamp and returns the
// paired values. Rows present in only one series are discarded.
func Align(y, x Series) (ys, xs []float64) {
	i, j := 0, 0
	for i < len(y) && j < len(x) {
		switch {
		case y[i].TS.Before(x[j].TS):
			i++
		case x[j].TS.Before(y[i].TS):
			j++
		default:
			ys = append(ys, y[i].Value)
			xs = append(xs, x[j].Value)
			i++
			j++
		}
	}
	return ys, xs
}

// LatestDefined returns the last non-NaN value of v.
func LatestDefined(v []float64) (float64, bool) {
	for i := len(v) - 1; i >= 0; i-- {
		if !math.IsNaN(v[i]) {
			return v[i], true
		}
	}
	return 0, false
}
