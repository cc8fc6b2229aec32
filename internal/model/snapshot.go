package model

import "time"

// Snapshot status values. A snapshot is always produced; when statistics
// cannot be computed the status says why and the numeric fields stay null.
const (
	StatusOK                    = "ok"
	StatusInsufficientData      = "insufficient_data"
	StatusInsufficientAlignment = "insufficient_alignment"
)

// PairSnapshot is the live analytics payload published for one pair on
// every publish cycle. Pointer fields serialize as JSON null when the
// statistic is undefined.
type PairSnapshot struct {
	PairY string    `json:"pair_y"`
	PairX string    `json:"pair_x"`
	TS    time.Time `json:"ts"`

	HedgeRatio  *float64 `json:"hedge_ratio"`
	Spread      *float64 `json:"spread"`
	ZScore      *float64 `json:"zscore"`
	RollingCorr *float64 `json:"rolling_corr"`

	Status string `json:"status"`
}

// ADFResult is the outcome of an augmented Dickey-Fuller stationarity test.
// All fields are null when the series is too short (<10 observations).
type ADFResult struct {
	Statistic *float64 `json:"statistic"`
	PValue    *float64 `json:"pvalue"`
	UsedLag   *int     `json:"used_lag"`
	NObs      *int     `json:"nobs"`
}

// Float returns a pointer to v, for building nullable snapshot fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
