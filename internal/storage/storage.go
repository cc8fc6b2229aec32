// Package storage persists raw ticks. The tick table is append-only and
// partitioned by symbol; concurrent writers for different symbols are safe.
package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/mzare-q/pairstream/internal/model"
)

// TickStore defines append-only tick persistence.
// Implementations must be safe for concurrent use.
type TickStore interface {
	// InsertTicks appends a batch of ticks.
	InsertTicks(ctx context.Context, ticks []model.Tick) error

	// QueryTicks returns all ticks for symbol with ts >= since,
	// ordered by ascending timestamp.
	QueryTicks(ctx context.Context, symbol string, since time.Time) ([]model.Tick, error)

	// Close releases database connection resources.
	Close() error
}

// clickhouseStore implements TickStore on the native ClickHouse driver.
// Batch inserts are significantly faster than row-at-a-time inserts.
type clickhouseStore struct {
	conn driver.Conn
}

// NewClickHouseStore opens a ClickHouse connection from a DSN and verifies
// connectivity with a ping.
func NewClickHouseStore(dsn string) (TickStore, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return &clickhouseStore{conn: conn}, nil
}

func (s *clickhouseStore) InsertTicks(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO tick (symbol, ts, price, size, inserted_at)
	`)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, t := range ticks {
		if err := batch.Append(t.Symbol, t.TS, t.Price, t.Size, now); err != nil {
			return err
		}
	}

	return batch.Send()
}

func (s *clickhouseStore) QueryTicks(ctx context.Context, symbol string, since time.Time) ([]model.Tick, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT symbol, ts, price, size
		FROM tick
		WHERE symbol = ? AND ts >= ?
		ORDER BY ts ASC
	`, symbol, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []model.Tick
	for rows.Next() {
		var t model.Tick
		if err := rows.Scan(&t.Symbol, &t.TS, &t.Price, &t.Size); err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

func (s *clickhouseStore) Close() error {
	return s.conn.Close()
}
