package journal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func tx(id string, amount float64) model.Order {
	return model.Order{
		ID:         id,
		Account:    "acc",
		Instrument: "GOOG",
		Side:       enum.SideLong,
		Amount:     decimal.NewFromFloat(amount),
		Operation: model.Operation{
			Status: enum.StatusTransaction,
			Amount: decimal.NewFromFloat(amount),
		},
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	j := New("acc")

	first, err := j.Append(tx("t1", 1))
	require.NoError(t, err)
	second, err := j.Append(tx("t2", 2))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)

	all := j.All()
	require.Len(t, all, 2)
	assert.Equal(t, "t1", all[0].Order.ID)
	assert.Equal(t, "t2", all[1].Order.ID)
}

func TestAppendRejectsNonTransaction(t *testing.T) {
	j := New("acc")
	bad := tx("t1", 1)
	bad.Operation.Status = enum.StatusPosition

	_, err := j.Append(bad)
	assert.Error(t, err)
	assert.Equal(t, 0, j.Len())
}

func TestAllIsSnapshot(t *testing.T) {
	j := New("acc")
	_, err := j.Append(tx("t1", 1))
	require.NoError(t, err)

	view := j.All()
	_, err = j.Append(tx("t2", 2))
	require.NoError(t, err)

	assert.Len(t, view, 1)
	assert.Equal(t, 2, j.Len())
}
