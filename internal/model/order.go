package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// Order is the immutable value snapshot of one order. Mutations produce a
// new snapshot that replaces the stored one, never in-place edits shared
// across callers.
type Order struct {
	ID              string           `json:"id"`
	Account         string           `json:"account"`
	Instrument      string           `json:"instrument"`
	Side            enum.Side        `json:"side"`
	Type            enum.OrderType   `json:"type"`
	Instruction     enum.Instruction `json:"instruction"`
	Amount          decimal.Decimal  `json:"amount"`
	Price           decimal.Decimal  `json:"price"`
	ActivationPrice decimal.Decimal  `json:"activationPrice"`
	TimeInForce     enum.TimeInForce `json:"timeInForce"`
	Orders          []Order          `json:"orders,omitempty"`
	Operation       Operation        `json:"operation"`
}

// Operation is the execution block of an order: what actually happened to
// it, as opposed to what was requested.
type Operation struct {
	Status       enum.Status     `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Instrument   Instrument      `json:"instrument"`
	Time         time.Time       `json:"time"`
}

// Braces returns the bracket children of the order.
func (o Order) Braces() []Order {
	var out []Order
	for _, child := range o.Orders {
		if child.Instruction == enum.InstructionBrace {
			out = append(out, child)
		}
	}
	return out
}

// Sides returns the independent leg children of the order.
func (o Order) Sides() []Order {
	var out []Order
	for _, child := range o.Orders {
		if child.Instruction == enum.InstructionSide {
			out = append(out, child)
		}
	}
	return out
}

// Balance tracks the running PnL of a position. Min and Max move
// monotonically as ticks arrive.
type Balance struct {
	Current decimal.Decimal `json:"current"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
}

// Update folds a new PnL sample into the balance.
func (b Balance) Update(pnl decimal.Decimal) Balance {
	b.Current = pnl
	if pnl.LessThan(b.Min) {
		b.Min = pnl
	}
	if pnl.GreaterThan(b.Max) {
		b.Max = pnl
	}
	return b
}

// Position is an open netted position: an order record in status
// Position plus a running balance. One per (account, instrument).
type Position struct {
	Order   Order   `json:"order"`
	Balance Balance `json:"balance"`
}

// Transaction is the immutable snapshot of an order at the moment it was
// fully or partially closed. Seq is the account-local append order.
type Transaction struct {
	Order Order  `json:"order"`
	Seq   uint64 `json:"seq"`
}
