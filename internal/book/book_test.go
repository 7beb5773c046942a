package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

type staticQuotes map[string]model.Point

func (q staticQuotes) Latest(name string) (model.Point, bool) {
	p, ok := q[name]
	return p, ok
}

func quote(name string, bid, ask float64) model.Point {
	return model.Point{
		Name: name,
		Bid:  decimal.NewFromFloat(bid),
		Ask:  decimal.NewFromFloat(ask),
		Last: decimal.NewFromFloat(ask),
		Time: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func pending(id, instrument string, side enum.Side, typ enum.OrderType, amount, price float64) model.Order {
	return model.Order{
		ID:          id,
		Instrument:  instrument,
		Side:        side,
		Type:        typ,
		Instruction: enum.InstructionSide,
		Amount:      decimal.NewFromFloat(amount),
		Price:       decimal.NewFromFloat(price),
		TimeInForce: enum.TimeInForceGTC,
	}
}

func TestLongStopExecutableWhenAskAbovePrice(t *testing.T) {
	ord := pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeStop, 1, 15)

	_, fire := Executable(ord, quote("GOOG", 25, 25))
	assert.True(t, fire)

	_, fire = Executable(ord, quote("GOOG", 10, 10))
	assert.False(t, fire)
}

func TestLimitExecutability(t *testing.T) {
	long := pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeLimit, 1, 100)
	short := pending("ord-2", "GOOG", enum.SideShort, enum.OrderTypeLimit, 1, 100)

	_, fire := Executable(long, quote("GOOG", 99, 99))
	assert.True(t, fire, "long limit fires when ask <= price")
	_, fire = Executable(long, quote("GOOG", 101, 101))
	assert.False(t, fire)

	_, fire = Executable(short, quote("GOOG", 101, 102))
	assert.True(t, fire, "short limit fires when bid >= price")
	_, fire = Executable(short, quote("GOOG", 99, 99))
	assert.False(t, fire)
}

func TestInstrumentMismatchNeverFires(t *testing.T) {
	ord := pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeMarket, 1, 0)

	updated, fire := Executable(ord, quote("AAPL", 25, 25))
	assert.False(t, fire)
	assert.Equal(t, ord, updated)
}

func TestStopLimitDowngradeIsOneWayAndPersisted(t *testing.T) {
	b := New("acc", nil)
	ord := pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeStopLimit, 1, 90)
	ord.ActivationPrice = decimal.NewFromInt(100)

	resp := b.Store(ord)
	require.Len(t, resp, 1)
	require.True(t, resp[0].OK())

	// Activation crossed: the stored order becomes a plain Limit.
	fills := b.Tap(quote("GOOG", 105, 105))
	assert.Empty(t, fills)
	stored, ok := b.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, enum.OrderTypeLimit, stored.Type)

	// It now fires as a Limit once the ask comes back to the price.
	fills = b.Tap(quote("GOOG", 89, 89))
	require.Len(t, fills, 1)
	assert.Equal(t, enum.StatusPosition, fills[0].Operation.Status)
	assert.Equal(t, 0, b.Len())
}

func TestStoreRejectsBatchOnAnyLeafError(t *testing.T) {
	b := New("acc", nil)
	group := model.Order{
		ID:          "grp-1",
		Instruction: enum.InstructionGroup,
		Type:        enum.OrderTypeLimit,
		TimeInForce: enum.TimeInForceGTC,
		Orders: []model.Order{
			pending("leg-1", "GOOG", enum.SideLong, enum.OrderTypeLimit, 1, 100),
			pending("leg-2", "AAPL", enum.SideShort, enum.OrderTypeLimit, 0, 100), // bad amount
		},
	}

	responses := b.Store(group)
	require.Len(t, responses, 2)
	assert.True(t, responses[0].OK())
	require.False(t, responses[1].OK())
	assert.Contains(t, responses[1].Errors[0], "amount")
	assert.Equal(t, 0, b.Len(), "nothing persisted for a failing batch")
}

func TestStoreValidatesMissingPrices(t *testing.T) {
	b := New("acc", nil)

	noPrice := pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeLimit, 1, 0)
	responses := b.Store(noPrice)
	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].Errors[0], "price")

	noActivation := pending("ord-2", "GOOG", enum.SideLong, enum.OrderTypeStopLimit, 1, 50)
	responses = b.Store(noActivation)
	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].Errors[0], "activationPrice")
	assert.Equal(t, 0, b.Len())
}

func TestGroupComposition(t *testing.T) {
	quotes := staticQuotes{
		"GOOG": quote("GOOG", 99, 101),
		"AAPL": quote("AAPL", 49, 51),
	}
	b := New("acc", quotes)

	group := model.Order{
		ID:          "grp-1",
		Instruction: enum.InstructionGroup,
		Type:        enum.OrderTypeLimit,
		TimeInForce: enum.TimeInForceDay,
		Orders: []model.Order{
			{Instrument: "GOOG", Side: enum.SideLong, Instruction: enum.InstructionSide, Amount: decimal.NewFromInt(100)},
			{Instrument: "AAPL", Side: enum.SideShort, Instruction: enum.InstructionSide, Amount: decimal.NewFromInt(2)},
		},
	}

	responses := b.Store(group)
	require.Len(t, responses, 2)
	for _, resp := range responses {
		require.True(t, resp.OK(), "errors: %v", resp.Errors)
	}
	assert.Equal(t, 2, b.Len(), "group parent without amount is not persisted")

	long := responses[0].Order
	assert.Equal(t, "acc", long.Account)
	assert.Equal(t, enum.OrderTypeLimit, long.Type)
	assert.Equal(t, enum.TimeInForceDay, long.TimeInForce)
	assert.True(t, long.Price.Equal(decimal.NewFromInt(101)), "long leg opens at ask")

	short := responses[1].Order
	assert.True(t, short.Price.Equal(decimal.NewFromInt(49)), "short leg opens at bid")
}

func TestBraceChildrenExcludedFromExpansion(t *testing.T) {
	b := New("acc", nil)
	parent := pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeLimit, 1, 100)
	parent.Orders = []model.Order{
		{ID: "sl", Instrument: "GOOG", Side: enum.SideShort, Type: enum.OrderTypeLimit,
			Instruction: enum.InstructionBrace, Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(95)},
	}

	responses := b.Store(parent)
	require.Len(t, responses, 1)
	require.True(t, responses[0].OK())
	assert.Equal(t, 1, b.Len(), "brace child is not a live order until the parent fills")

	stored, ok := b.Get("ord-1")
	require.True(t, ok)
	require.Len(t, stored.Braces(), 1)
}

func TestRemoveIsIdempotent(t *testing.T) {
	b := New("acc", nil)
	b.Store(pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeLimit, 1, 100))

	first := b.Remove("ord-1")
	second := b.Remove("ord-1")
	assert.Equal(t, first, second)
	assert.Equal(t, 0, b.Len())

	absent := b.Remove("never-there")
	assert.Equal(t, "never-there", absent.ID)
}

func TestTapRemovesBeforeFill(t *testing.T) {
	b := New("acc", nil)
	b.Store(pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeMarket, 1, 0))

	fills := b.Tap(quote("GOOG", 155, 155))
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Operation.AveragePrice.Equal(decimal.NewFromInt(155)))

	// Re-delivery of the same quote cannot double-fill.
	assert.Empty(t, b.Tap(quote("GOOG", 155, 155)))
}

func TestClear(t *testing.T) {
	b := New("acc", nil)
	b.Store(pending("ord-1", "GOOG", enum.SideLong, enum.OrderTypeLimit, 1, 100))
	b.Store(pending("ord-2", "AAPL", enum.SideShort, enum.OrderTypeLimit, 1, 50))

	removed := b.Clear()
	require.Len(t, removed, 2)
	assert.Equal(t, "ord-1", removed[0].ID)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Clear())
}
