package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PriceReference is a row of the SQLite price table.
type PriceReference struct {
	MarketName string `gorm:"primaryKey"`
	Price      int64  // Minor units
}

// SQLiteOracle reads reference prices from a local SQLite database.
type SQLiteOracle struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the SQLite price database at path.
// ":memory:" is accepted for an in-process database.
func OpenSQLite(path string, log *slog.Logger) (*SQLiteOracle, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create price db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open price db: %w", err)
	}

	return NewSQLiteOracle(db, log)
}

// NewSQLiteOracle wraps an open gorm database and migrates the price table.
func NewSQLiteOracle(db *gorm.DB, log *slog.Logger) (*SQLiteOracle, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := db.AutoMigrate(&PriceReference{}); err != nil {
		return nil, fmt.Errorf("migrate price db: %w", err)
	}

	return &SQLiteOracle{db: db, logger: log}, nil
}

// ReferencePrice implements Oracle.
func (o *SQLiteOracle) ReferencePrice(ctx context.Context, marketName string) (int64, bool, error) {
	var ref PriceReference
	err := o.db.WithContext(ctx).First(&ref, "market_name = ?", marketName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query reference price: %w", err)
	}

	return ref.Price, true, nil
}

// Upsert creates or replaces reference prices.
func (o *SQLiteOracle) Upsert(ctx context.Context, refs ...PriceReference) error {
	if len(refs) == 0 {
		return nil
	}
	err := o.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&refs).Error
	if err != nil {
		return fmt.Errorf("upsert reference prices: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (o *SQLiteOracle) Close() error {
	sqlDB, err := o.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
