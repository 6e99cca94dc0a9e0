// Package storage holds the transaction stores the pipeline reads from and writes to.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/insightdelivered/statement-ingest/internal/models"
)

// Record is a stored transaction.
type Record struct {
	ID              string    `gorm:"primaryKey;size:36"`
	UserID          string    `gorm:"index:idx_records_user_date;not null"`
	Date            time.Time `gorm:"index:idx_records_user_date;not null"`
	Type            string    `gorm:"size:16;not null"`
	Amount          string    `gorm:"not null"` // decimal text, never float
	Description     string
	Category        string
	Bank            string
	TransactionType string
	CreatedAt       time.Time
}

// GormStore persists records in SQLite through gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenGormStore opens (or creates) the SQLite database at path and migrates it.
func OpenGormStore(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindCandidateRecords returns the user's records dated on or after since.
func (s *GormStore) FindCandidateRecords(ctx context.Context, userID string, since models.CalendarDate) ([]models.ExistingRecord, error) {
	var rows []Record
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ?", userID, since.Time).
		Order("date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	out := make([]models.ExistingRecord, 0, len(rows))
	for _, r := range rows {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("record %s has a bad amount %q: %w", r.ID, r.Amount, err)
		}
		out = append(out, models.ExistingRecord{
			ID:          r.ID,
			Date:        models.DateOf(r.Date.UTC()),
			Type:        models.TxType(r.Type),
			Amount:      amount,
			Description: r.Description,
		})
	}
	return out, nil
}

// InsertRecords stores txs in a single transaction.
func (s *GormStore) InsertRecords(ctx context.Context, userID string, txs []models.NormalizedTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]Record, len(txs))
	for i, tx := range txs {
		rows[i] = Record{
			ID:              uuid.NewString(),
			UserID:          userID,
			Date:            tx.Date.Time,
			Type:            string(tx.Type),
			Amount:          tx.Amount.String(),
			Description:     tx.Description,
			Category:        tx.Category,
			Bank:            tx.Bank,
			TransactionType: tx.TransactionType,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save records: %w", err)
		}
		return nil
	})
}
