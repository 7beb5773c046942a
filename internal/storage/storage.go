// Package storage persists executed transactions and position snapshots
// to PostgreSQL. It is optional; the engine runs fully in memory when no
// store is attached.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/internal/model"
)

// TransactionRecord is one closed (or partially closed) position slice.
type TransactionRecord struct {
	ID           uint            `gorm:"primaryKey"`
	Account      string          `gorm:"index:idx_tx_account_seq,priority:1"`
	Seq          uint64          `gorm:"index:idx_tx_account_seq,priority:2"`
	OrderID      string          `gorm:"index"`
	Instrument   string          `gorm:"index"`
	Side         string
	Amount       decimal.Decimal `gorm:"type:numeric"`
	EntryPrice   decimal.Decimal `gorm:"type:numeric"`
	ClosePrice   decimal.Decimal `gorm:"type:numeric"`
	ExecutedAt   time.Time
	CreatedAt    time.Time
}

// PositionRecord is the latest open position per account and instrument.
type PositionRecord struct {
	Account      string          `gorm:"primaryKey"`
	Instrument   string          `gorm:"primaryKey"`
	OrderID      string
	Side         string
	Amount       decimal.Decimal `gorm:"type:numeric"`
	AveragePrice decimal.Decimal `gorm:"type:numeric"`
	Balance      decimal.Decimal `gorm:"type:numeric"`
	BalanceMin   decimal.Decimal `gorm:"type:numeric"`
	BalanceMax   decimal.Decimal `gorm:"type:numeric"`
	UpdatedAt    time.Time
}

// Store writes engine output to the database.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&TransactionRecord{}, &PositionRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// SaveTransaction appends one transaction row.
func (s *Store) SaveTransaction(ctx context.Context, account string, tx model.Transaction) error {
	record := toTransactionRecord(account, tx)
	return s.db.WithContext(ctx).Create(&record).Error
}

// SavePosition upserts the open position for (account, instrument).
func (s *Store) SavePosition(ctx context.Context, account string, pos model.Position) error {
	record := toPositionRecord(account, pos)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "instrument"}},
		UpdateAll: true,
	}).Create(&record).Error
}

func toTransactionRecord(account string, tx model.Transaction) TransactionRecord {
	return TransactionRecord{
		Account:    account,
		Seq:        tx.Seq,
		OrderID:    tx.Order.ID,
		Instrument: tx.Order.Instrument,
		Side:       tx.Order.Side.String(),
		Amount:     tx.Order.Operation.Amount,
		EntryPrice: tx.Order.Operation.AveragePrice,
		ClosePrice: tx.Order.Price,
		ExecutedAt: tx.Order.Operation.Time,
	}
}

func toPositionRecord(account string, pos model.Position) PositionRecord {
	return PositionRecord{
		Account:      account,
		Instrument:   pos.Order.Instrument,
		OrderID:      pos.Order.ID,
		Side:         pos.Order.Side.String(),
		Amount:       pos.Order.Operation.Amount,
		AveragePrice: pos.Order.Operation.AveragePrice,
		Balance:      pos.Balance.Current,
		BalanceMin:   pos.Balance.Min,
		BalanceMax:   pos.Balance.Max,
		UpdatedAt:    pos.Order.Operation.Time,
	}
}
