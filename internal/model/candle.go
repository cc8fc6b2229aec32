package model

import "time"

// Candle is one tumbling-window OHLCV bar. A candle is uniquely identified
// by (symbol, open_time) for a given interval length and is never mutated
// after insertion.
type Candle struct {
	// Symbol is the lower-cased instrument symbol.
	Symbol string `json:"symbol" gorm:"column:symbol"`

	// OpenTime is the interval start, aligned to the interval boundary, UTC.
	OpenTime time.Time `json:"open_time" gorm:"column:open_time"`

	Open   float64 `json:"open" gorm:"column:open"`
	High   float64 `json:"high" gorm:"column:high"`
	Low    float64 `json:"low" gorm:"column:low"`
	Close  float64 `json:"close" gorm:"column:close"`
	Volume float64 `json:"volume" gorm:"column:volume"`

	// InsertedAt is when the row was written.
	InsertedAt time.Time `json:"inserted_at" gorm:"column:inserted_at"`
}

// TableName maps Candle onto the ohlcv table.
func (Candle) TableName() string { return "ohlcv" }
