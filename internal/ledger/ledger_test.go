package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func fill(instrument string, side enum.Side, amount, price float64) model.Order {
	amt := decimal.NewFromFloat(amount)
	return model.Order{
		ID:          instrument + "-" + side.String(),
		Account:     "acc",
		Instrument:  instrument,
		Side:        side,
		Type:        enum.OrderTypeMarket,
		Instruction: enum.InstructionSide,
		Amount:      amt,
		Operation: model.Operation{
			Status:       enum.StatusPosition,
			Amount:       amt,
			AveragePrice: decimal.NewFromFloat(price),
			Time:         time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}
}

func point(name string, bid, ask float64) model.Point {
	return model.Point{
		Name: name,
		Bid:  decimal.NewFromFloat(bid),
		Ask:  decimal.NewFromFloat(ask),
		Last: decimal.NewFromFloat(bid),
	}
}

func TestStoreCreatesFirstPosition(t *testing.T) {
	l := New("acc", Config{})

	res, err := l.Store(fill("GOOG", enum.SideLong, 5, 550))
	require.NoError(t, err)
	assert.Nil(t, res.Transaction)
	assert.True(t, res.Position.Order.Operation.AveragePrice.Equal(decimal.NewFromInt(550)))

	pos, ok := l.Get("GOOG")
	require.True(t, ok)
	assert.True(t, pos.Order.Operation.Amount.Equal(decimal.NewFromInt(5)))
}

func TestIncreaseWeightedAverage(t *testing.T) {
	l := New("acc", Config{})

	_, err := l.Store(fill("GOOG", enum.SideLong, 2, 100))
	require.NoError(t, err)
	res, err := l.Store(fill("GOOG", enum.SideLong, 3, 110))
	require.NoError(t, err)
	assert.Nil(t, res.Transaction)

	// (2*100 + 3*110) / 5 = 106
	pos := res.Position
	assert.True(t, pos.Order.Operation.Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, pos.Order.Operation.AveragePrice.Equal(decimal.NewFromInt(106)))

	// A third leg weighs the already-averaged position: (5*106 + 5*90) / 10 = 98
	res, err = l.Store(fill("GOOG", enum.SideLong, 5, 90))
	require.NoError(t, err)
	assert.True(t, res.Position.Order.Operation.AveragePrice.Equal(decimal.NewFromInt(98)))
}

func TestDecreaseKeepsAveragePrice(t *testing.T) {
	l := New("acc", Config{})

	_, err := l.Store(fill("GOOG", enum.SideLong, 5, 100))
	require.NoError(t, err)
	res, err := l.Store(fill("GOOG", enum.SideShort, 2, 120))
	require.NoError(t, err)

	require.NotNil(t, res.Transaction)
	tx := *res.Transaction
	assert.Equal(t, enum.StatusTransaction, tx.Operation.Status)
	assert.True(t, tx.Operation.Amount.Equal(decimal.NewFromInt(2)))
	assert.True(t, tx.Operation.AveragePrice.Equal(decimal.NewFromInt(100)), "entry price kept")
	assert.True(t, tx.Price.Equal(decimal.NewFromInt(120)), "closed at fill price")

	pos, ok := l.Get("GOOG")
	require.True(t, ok)
	assert.True(t, pos.Order.Operation.Amount.Equal(decimal.NewFromInt(3)))
	assert.True(t, pos.Order.Operation.AveragePrice.Equal(decimal.NewFromInt(100)))
}

func TestCloseEmitsOneTransactionAndRemovesPosition(t *testing.T) {
	l := New("acc", Config{})

	opening := fill("GOOG", enum.SideLong, 5, 100)
	opening.Orders = []model.Order{{
		Instrument: "GOOG", Side: enum.SideShort, Type: enum.OrderTypeLimit,
		Instruction: enum.InstructionBrace,
		Amount:      decimal.NewFromInt(5), Price: decimal.NewFromInt(95),
	}}
	res, err := l.Store(opening)
	require.NoError(t, err)
	require.Len(t, res.BraceCreate, 1)
	braceID := res.BraceCreate[0].ID
	require.NotEmpty(t, braceID)

	res, err = l.Store(fill("GOOG", enum.SideShort, 5, 110))
	require.NoError(t, err)
	assert.True(t, res.Closed)
	require.NotNil(t, res.Transaction)
	assert.True(t, res.Transaction.Operation.Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, []string{braceID}, res.BraceRemove, "closing cascades brace removal")

	_, ok := l.Get("GOOG")
	assert.False(t, ok)
}

func TestReverseOpensSuccessor(t *testing.T) {
	l := New("acc", Config{})

	_, err := l.Store(fill("GOOG", enum.SideLong, 5, 550))
	require.NoError(t, err)

	res, err := l.Store(fill("GOOG", enum.SideShort, 10, 540))
	require.NoError(t, err)

	require.NotNil(t, res.Transaction)
	assert.True(t, res.Transaction.Operation.Amount.Equal(decimal.NewFromInt(5)))

	pos := res.Position
	assert.Equal(t, enum.SideShort, pos.Order.Side)
	assert.True(t, pos.Order.Operation.Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, pos.Order.Operation.AveragePrice.Equal(decimal.NewFromInt(540)))
}

func TestReverseSwapsBraces(t *testing.T) {
	l := New("acc", Config{})

	opening := fill("GOOG", enum.SideLong, 1, 100)
	opening.Orders = []model.Order{{
		Instrument: "GOOG", Side: enum.SideShort, Type: enum.OrderTypeStop,
		Instruction: enum.InstructionBrace,
		Amount:      decimal.NewFromInt(1), Price: decimal.NewFromInt(105),
	}}
	res, err := l.Store(opening)
	require.NoError(t, err)
	oldBrace := res.BraceCreate[0].ID

	reversing := fill("GOOG", enum.SideShort, 3, 98)
	reversing.Orders = []model.Order{{
		Instrument: "GOOG", Side: enum.SideLong, Type: enum.OrderTypeStop,
		Instruction: enum.InstructionBrace,
		Amount:      decimal.NewFromInt(2), Price: decimal.NewFromInt(93),
	}}
	res, err = l.Store(reversing)
	require.NoError(t, err)

	assert.Equal(t, []string{oldBrace}, res.BraceRemove)
	require.Len(t, res.BraceCreate, 1)
	assert.NotEqual(t, oldBrace, res.BraceCreate[0].ID)
}

func TestRejectsUnfilledOrder(t *testing.T) {
	l := New("acc", Config{})

	pending := fill("GOOG", enum.SideLong, 1, 100)
	pending.Operation.Status = enum.StatusPending
	_, err := l.Store(pending)
	assert.Error(t, err)
}

func TestTapRecomputesBalance(t *testing.T) {
	l := New("acc", Config{
		Leverage:   decimal.NewFromInt(2),
		Commission: decimal.NewFromInt(1),
	})

	_, err := l.Store(fill("GOOG", enum.SideLong, 3, 100))
	require.NoError(t, err)

	// Long closes at bid: (104 - 100) * 3 * 2 - 1 = 23
	pos, ok := l.Tap(point("GOOG", 104, 105))
	require.True(t, ok)
	assert.True(t, pos.Balance.Current.Equal(decimal.NewFromInt(23)))
	assert.True(t, pos.Balance.Max.Equal(decimal.NewFromInt(23)))

	// Drawdown moves min, max stays.
	pos, _ = l.Tap(point("GOOG", 95, 96))
	assert.True(t, pos.Balance.Current.Equal(decimal.NewFromInt(-31)))
	assert.True(t, pos.Balance.Min.Equal(decimal.NewFromInt(-31)))
	assert.True(t, pos.Balance.Max.Equal(decimal.NewFromInt(23)))

	// Recovery moves current but neither extreme.
	pos, _ = l.Tap(point("GOOG", 100, 101))
	assert.True(t, pos.Balance.Current.Equal(decimal.NewFromInt(-1)))
	assert.True(t, pos.Balance.Min.Equal(decimal.NewFromInt(-31)))
	assert.True(t, pos.Balance.Max.Equal(decimal.NewFromInt(23)))
}

func TestTapShortClosesAtAsk(t *testing.T) {
	l := New("acc", Config{})

	_, err := l.Store(fill("GOOG", enum.SideShort, 2, 100))
	require.NoError(t, err)

	// Short: (100 - 97) * 2 = 6 using the ask.
	pos, ok := l.Tap(point("GOOG", 96, 97))
	require.True(t, ok)
	assert.True(t, pos.Balance.Current.Equal(decimal.NewFromInt(6)))
}

func TestTapIgnoresUnknownInstrument(t *testing.T) {
	l := New("acc", Config{})
	_, ok := l.Tap(point("GOOG", 1, 2))
	assert.False(t, ok)
}

func TestPositionsSnapshotOrdered(t *testing.T) {
	l := New("acc", Config{})
	_, err := l.Store(fill("MSFT", enum.SideLong, 1, 10))
	require.NoError(t, err)
	_, err = l.Store(fill("AAPL", enum.SideLong, 1, 10))
	require.NoError(t, err)

	positions := l.Positions()
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Order.Instrument)
	assert.Equal(t, "MSFT", positions[1].Order.Instrument)
}
