// Package ledger owns one account's open positions and applies netting
// when fills arrive: increase, partial close, full close or reversal.
package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"main/internal/errors"
	"main/internal/model"
	"main/internal/model/enum"
)

// Config carries the account trading terms used for PnL.
type Config struct {
	Leverage   decimal.Decimal
	Commission decimal.Decimal
}

func (c Config) withDefaults() Config {
	if !c.Leverage.IsPositive() {
		c.Leverage = decimal.NewFromInt(1)
	}
	return c
}

// StoreResult is the confirmed outcome of netting one fill. The bracket
// cascade is returned explicitly so the caller can apply it to the
// order book as one saga: create the new position's braces, remove the
// closed position's braces, and append the transaction, all before the
// fill's turn completes.
type StoreResult struct {
	Position    model.Position
	Closed      bool
	Transaction *model.Order
	BraceCreate []model.Order
	BraceRemove []string
}

// Ledger tracks one position per instrument for one account. Not safe
// for concurrent use; the engine runs it on the account's mailbox.
type Ledger struct {
	account   string
	cfg       Config
	positions map[string]model.Position
}

// New creates an empty ledger.
func New(account string, cfg Config) *Ledger {
	return &Ledger{
		account:   account,
		cfg:       cfg.withDefaults(),
		positions: make(map[string]model.Position),
	}
}

// Account returns the owning account id.
func (l *Ledger) Account() string {
	return l.account
}

// Store nets a filled order into the account's positions.
func (l *Ledger) Store(fill model.Order) (StoreResult, error) {
	if fill.Operation.Status != enum.StatusPosition {
		return StoreResult{}, errors.New("fill is not in position status: " + fill.Operation.Status.String())
	}
	if !fill.Operation.Amount.IsPositive() {
		return StoreResult{}, errors.New("fill amount must be > 0")
	}

	existing, ok := l.positions[fill.Instrument]
	if !ok {
		return l.open(fill), nil
	}
	if fill.Side == existing.Order.Side.Opposite() {
		switch fill.Operation.Amount.Cmp(existing.Order.Operation.Amount) {
		case -1:
			return l.decrease(existing, fill), nil
		case 0:
			return l.close(existing, fill), nil
		default:
			return l.reverse(existing, fill), nil
		}
	}
	return l.increase(existing, fill), nil
}

// Tap recomputes the balance of the position matching the quote, if
// any. The side gives up the spread on exit: longs close at bid,
// shorts at ask.
func (l *Ledger) Tap(p model.Point) (model.Position, bool) {
	pos, ok := l.positions[p.Name]
	if !ok {
		return model.Position{}, false
	}

	avg := pos.Order.Operation.AveragePrice
	closePrice := p.Bid
	if pos.Order.Side == enum.SideShort {
		closePrice = p.Ask
	}

	direction := decimal.NewFromInt(pos.Order.Side.Direction())
	priceRange := closePrice.Sub(avg).Mul(direction)
	pnl := pos.Order.Operation.Amount.Mul(priceRange).Mul(l.cfg.Leverage).Sub(l.cfg.Commission)

	pos.Balance = pos.Balance.Update(pnl)
	l.positions[p.Name] = pos
	return pos, true
}

// Get returns the open position for an instrument.
func (l *Ledger) Get(instrument string) (model.Position, bool) {
	pos, ok := l.positions[instrument]
	return pos, ok
}

// Positions returns a snapshot of open positions ordered by instrument.
func (l *Ledger) Positions() []model.Position {
	names := make([]string, 0, len(l.positions))
	for name := range l.positions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.Position, 0, len(names))
	for _, name := range names {
		out = append(out, l.positions[name])
	}
	return out
}

// open creates the first position for an instrument directly from the
// fill and schedules its braces for creation.
func (l *Ledger) open(fill model.Order) StoreResult {
	fill = withBraceIDs(fill)
	pos := model.Position{Order: fill}
	l.positions[fill.Instrument] = pos
	return StoreResult{
		Position:    pos,
		BraceCreate: braceOrders(fill),
	}
}

// increase merges a same-side fill: the new average price weighs
// exactly two legs, the existing position at its own average and the
// fill at its price.
func (l *Ledger) increase(pos model.Position, fill model.Order) StoreResult {
	posAmt := pos.Order.Operation.Amount
	posAvg := pos.Order.Operation.AveragePrice
	fillAmt := fill.Operation.Amount
	fillPrice := fill.Operation.AveragePrice

	total := posAmt.Add(fillAmt)
	avg := posAmt.Mul(posAvg).Add(fillAmt.Mul(fillPrice)).Div(total)

	pos.Order.Amount = total
	pos.Order.Operation.Amount = total
	pos.Order.Operation.AveragePrice = avg
	pos.Order.Operation.Instrument = fill.Operation.Instrument
	pos.Order.Operation.Time = fill.Operation.Time
	l.positions[pos.Order.Instrument] = pos

	return StoreResult{Position: pos}
}

// decrease shrinks the position by the fill amount. Average price is
// unchanged; the closed slice becomes a transaction.
func (l *Ledger) decrease(pos model.Position, fill model.Order) StoreResult {
	tx := transactionOf(pos, fill, fill.Operation.Amount)

	remaining := pos.Order.Operation.Amount.Sub(fill.Operation.Amount)
	pos.Order.Amount = remaining
	pos.Order.Operation.Amount = remaining
	l.positions[pos.Order.Instrument] = pos

	return StoreResult{Position: pos, Transaction: &tx}
}

// close deletes the position and cascades the removal of its braces.
func (l *Ledger) close(pos model.Position, fill model.Order) StoreResult {
	tx := transactionOf(pos, fill, pos.Order.Operation.Amount)
	delete(l.positions, pos.Order.Instrument)

	return StoreResult{
		Closed:      true,
		Transaction: &tx,
		BraceRemove: braceIDs(pos.Order),
	}
}

// reverse closes the old position for its full amount and opens a
// successor on the fill's side for the excess, at the fill price.
func (l *Ledger) reverse(pos model.Position, fill model.Order) StoreResult {
	tx := transactionOf(pos, fill, pos.Order.Operation.Amount)

	successor := withBraceIDs(fill)
	excess := fill.Operation.Amount.Sub(pos.Order.Operation.Amount)
	successor.Amount = excess
	successor.Operation.Amount = excess

	next := model.Position{Order: successor}
	l.positions[fill.Instrument] = next

	return StoreResult{
		Position:    next,
		Transaction: &tx,
		BraceRemove: braceIDs(pos.Order),
		BraceCreate: braceOrders(successor),
	}
}

// transactionOf snapshots the position at the fill price: the average
// price keeps the position's entry, Price carries the closing fill
// price, and the amount is the closed slice.
func transactionOf(pos model.Position, fill model.Order, amount decimal.Decimal) model.Order {
	tx := pos.Order
	tx.Price = fill.Operation.AveragePrice
	tx.Orders = nil
	tx.Operation.Status = enum.StatusTransaction
	tx.Operation.Amount = amount
	tx.Operation.Instrument = fill.Operation.Instrument
	tx.Operation.Time = fill.Operation.Time
	return tx
}

// withBraceIDs assigns ids to bracket children before they are handed
// to the order book, so the cascade removal can address them later.
func withBraceIDs(fill model.Order) model.Order {
	if len(fill.Orders) == 0 {
		return fill
	}
	children := make([]model.Order, len(fill.Orders))
	copy(children, fill.Orders)
	for i, child := range children {
		if child.Instruction == enum.InstructionBrace && child.ID == "" {
			children[i].ID = uuid.NewString()
		}
	}
	fill.Orders = children
	return fill
}

func braceOrders(o model.Order) []model.Order {
	braces := o.Braces()
	for i := range braces {
		braces[i].Account = o.Account
	}
	return braces
}

func braceIDs(o model.Order) []string {
	var ids []string
	for _, brace := range o.Braces() {
		if brace.ID != "" {
			ids = append(ids, brace.ID)
		}
	}
	return ids
}
