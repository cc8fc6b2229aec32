package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// SnapshotRow is the cached latest analytics payload for one pair. The
// table is a ReplacingMergeTree keyed by pair, so the cache is insert-only
// and the newest row wins.
type SnapshotRow struct {
	Pair      string    `gorm:"column:pair"`
	Payload   string    `gorm:"column:payload"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName maps SnapshotRow onto the snapshot_cache table.
func (SnapshotRow) TableName() string { return "snapshot_cache" }

// SnapshotRepository caches the most recent published snapshot per pair
// for the request/response read path.
type SnapshotRepository interface {
	// Save records payload as the latest snapshot for pair.
	Save(pair string, payload []byte) error

	// Latest returns the most recent payload for pair, or nil if none
	// has been cached yet.
	Latest(pair string) ([]byte, error)
}

type gormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository wraps a GORM connection as a SnapshotRepository.
func NewGormSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &gormSnapshotRepository{db: db}
}

func (r *gormSnapshotRepository) Save(pair string, payload []byte) error {
	row := SnapshotRow{
		Pair:      pair,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC(),
	}
	return r.db.Create(&row).Error
}

func (r *gormSnapshotRepository) Latest(pair string) ([]byte, error) {
	var row SnapshotRow
	err := r.db.
		Where("pair = ?", pair).
		Order("updated_at DESC").
		Limit(1).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Payload), nil
}
