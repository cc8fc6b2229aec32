// Package model defines the domain models shared across the pipeline.
package model

import "time"

// Tick is a single normalized trade event. Ticks are immutable once
// written to the tick store.
type Tick struct {
	// Symbol is the lower-cased instrument symbol (e.g., "btcusdt").
	Symbol string `json:"symbol"`

	// TS is the upstream trade time, UTC.
	TS time.Time `json:"ts"`

	// Price is the trade price. Always positive.
	Price float64 `json:"price"`

	// Size is the traded quantity. Never negative.
	Size float64 `json:"size"`
}
