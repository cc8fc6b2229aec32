package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mzare-q/pairstream/internal/model"
)

// tradeEvent is the upstream trade message shape. Price and quantity arrive
// as strings and the trade time as epoch milliseconds.
type tradeEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	TradeTime int64  `json:"T"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
}

// Normalize converts a raw upstream feed message into a canonical Tick.
// Non-trade events and malformed payloads return an error; the caller is
// expected to drop them and keep reading.
func Normalize(raw []byte) (model.Tick, error) {
	var ev tradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Tick{}, fmt.Errorf("decode trade event: %w", err)
	}

	if ev.EventType != "trade" {
		return model.Tick{}, fmt.Errorf("not a trade event: %q", ev.EventType)
	}
	if ev.Symbol == "" {
		return model.Tick{}, fmt.Errorf("missing symbol")
	}
	if ev.TradeTime <= 0 {
		return model.Tick{}, fmt.Errorf("invalid trade time: %d", ev.TradeTime)
	}

	price, err := strconv.ParseFloat(ev.Price, 64)
	if err != nil {
		return model.Tick{}, fmt.Errorf("parse price %q: %w", ev.Price, err)
	}
	if price <= 0 {
		return model.Tick{}, fmt.Errorf("invalid price: %v", price)
	}

	size, err := strconv.ParseFloat(ev.Quantity, 64)
	if err != nil {
		return model.Tick{}, fmt.Errorf("parse quantity %q: %w", ev.Quantity, err)
	}
	if size < 0 {
		return model.Tick{}, fmt.Errorf("invalid quantity: %v", size)
	}

	return model.Tick{
		Symbol: strings.ToLower(ev.Symbol),
		TS:     time.UnixMilli(ev.TradeTime).UTC(),
		Price:  price,
		Size:   size,
	}, nil
}
