package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"main/internal/model"
	"main/internal/model/enum"
)

func TestToTransactionRecord(t *testing.T) {
	executed := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	tx := model.Transaction{
		Seq: 3,
		Order: model.Order{
			ID:         "ord-9",
			Instrument: "AAPL",
			Side:       enum.SideLong,
			Price:      decimal.NewFromInt(104),
			Operation: model.Operation{
				Status:       enum.StatusTransaction,
				Amount:       decimal.NewFromInt(5),
				AveragePrice: decimal.NewFromInt(100),
				Time:         executed,
			},
		},
	}

	record := toTransactionRecord("acct-1", tx)
	assert.Equal(t, "acct-1", record.Account)
	assert.Equal(t, uint64(3), record.Seq)
	assert.Equal(t, "ord-9", record.OrderID)
	assert.Equal(t, "AAPL", record.Instrument)
	assert.Equal(t, "Long", record.Side)
	assert.True(t, record.Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, record.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, record.ClosePrice.Equal(decimal.NewFromInt(104)))
	assert.Equal(t, executed, record.ExecutedAt)
}

func TestToPositionRecord(t *testing.T) {
	pos := model.Position{
		Order: model.Order{
			ID:         "ord-2",
			Instrument: "TSLA",
			Side:       enum.SideShort,
			Operation: model.Operation{
				Status:       enum.StatusPosition,
				Amount:       decimal.NewFromInt(2),
				AveragePrice: decimal.NewFromInt(550),
			},
		},
		Balance: model.Balance{
			Current: decimal.NewFromInt(12),
			Min:     decimal.NewFromInt(-4),
			Max:     decimal.NewFromInt(20),
		},
	}

	record := toPositionRecord("acct-1", pos)
	assert.Equal(t, "TSLA", record.Instrument)
	assert.Equal(t, "Short", record.Side)
	assert.True(t, record.AveragePrice.Equal(decimal.NewFromInt(550)))
	assert.True(t, record.Balance.Equal(decimal.NewFromInt(12)))
	assert.True(t, record.BalanceMin.Equal(decimal.NewFromInt(-4)))
	assert.True(t, record.BalanceMax.Equal(decimal.NewFromInt(20)))
}
