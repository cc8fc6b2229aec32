// Package repository provides GORM-backed access to the candle store and
// the snapshot cache.
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mzare-q/pairstream/internal/model"
)

// CandleRepository stores and serves OHLCV candles. Candles are written
// once per (symbol, open_time) and never mutated.
type CandleRepository interface {
	// Exists reports whether a candle is already stored for the interval.
	Exists(symbol string, openTime time.Time) (bool, error)

	// Create inserts one candle.
	Create(candle *model.Candle) error

	// LatestN returns the most recent n candles for symbol,
	// ordered oldest to newest.
	LatestN(symbol string, n int) ([]model.Candle, error)

	// Since returns candles with open_time >= since, ascending,
	// capped at limit rows (0 means no cap).
	Since(symbol string, since time.Time, limit int) ([]model.Candle, error)
}

type gormCandleRepository struct {
	db *gorm.DB
}

// NewGormCandleRepository wraps a GORM connection as a CandleRepository.
func NewGormCandleRepository(db *gorm.DB) CandleRepository {
	return &gormCandleRepository{db: db}
}

func (r *gormCandleRepository) Exists(symbol string, openTime time.Time) (bool, error) {
	var candle model.Candle
	err := r.db.
		Where("symbol = ? AND open_time = ?", symbol, openTime).
		First(&candle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *gormCandleRepository) Create(candle *model.Candle) error {
	if candle.InsertedAt.IsZero() {
		candle.InsertedAt = time.Now().UTC()
	}
	return r.db.Create(candle).Error
}

func (r *gormCandleRepository) LatestN(symbol string, n int) ([]model.Candle, error) {
	var candles []model.Candle
	err := r.db.
		Where("symbol = ?", symbol).
		Order("open_time DESC").
		Limit(n).
		Find(&candles).Error
	if err != nil {
		return nil, err
	}

	// Oldest -> newest.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

func (r *gormCandleRepository) Since(symbol string, since time.Time, limit int) ([]model.Candle, error) {
	query := r.db.
		Where("symbol = ? AND open_time >= ?", symbol, since).
		Order("open_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var candles []model.Candle
	if err := query.Find(&candles).Error; err != nil {
		return nil, err
	}
	return candles, nil
}
