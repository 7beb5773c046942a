// Package market maintains per-instrument quote state: the latest
// resolved point, raw tick history and the OHLC bar series.
package market

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/errors"
	"main/internal/model"
)

const defaultTimeframe = time.Minute

// Aggregator ingests raw ticks for one instrument. Not safe for
// concurrent use; the engine runs it on the instrument's mailbox.
type Aggregator struct {
	name     string
	point    model.Point
	resolved bool

	ticks    []model.Point
	bars     []model.Bar
	barIndex map[int64]int
}

// NewAggregator creates an empty aggregator for one instrument.
func NewAggregator(name string) *Aggregator {
	return &Aggregator{
		name:     name,
		barIndex: make(map[int64]int),
	}
}

// Name returns the instrument this aggregator tracks.
func (a *Aggregator) Name() string {
	return a.name
}

// Store resolves a raw tick into a point and folds it into the tick and
// bar histories. A tick without a usable last price is rejected and
// leaves all state unchanged.
func (a *Aggregator) Store(tick model.Tick) (model.Point, error) {
	last, ok := a.resolveLast(tick)
	if !ok {
		return model.Point{}, errors.Wrap(errors.ErrIncompleteTick, "store tick "+a.name)
	}

	point := model.Point{
		Name:      a.name,
		Bid:       orDefault(tick.Bid, last),
		Ask:       orDefault(tick.Ask, last),
		BidSize:   orDefault(tick.BidSize, decimal.Zero),
		AskSize:   orDefault(tick.AskSize, decimal.Zero),
		Last:      last,
		Time:      tick.Time,
		Timeframe: a.resolveTimeframe(tick),
	}
	point.Bar = a.storeBar(last, model.Bucket(point.Time, point.Timeframe))

	a.point = point
	a.resolved = true
	a.ticks = append(a.ticks, point)
	return point, nil
}

// Latest returns the most recent resolved point.
func (a *Aggregator) Latest() (model.Point, bool) {
	return a.point, a.resolved
}

// Prices returns a snapshot of the raw tick sequence. Later ticks do not
// change a previously returned view.
func (a *Aggregator) Prices() []model.Point {
	out := make([]model.Point, len(a.ticks))
	copy(out, a.ticks)
	return out
}

// PriceGroups returns a snapshot of the bar sequence, one row per
// bucket. The final row reflects the in-progress bucket as of the call;
// everything before it is frozen.
func (a *Aggregator) PriceGroups() []model.Bar {
	out := make([]model.Bar, len(a.bars))
	copy(out, a.bars)
	return out
}

func (a *Aggregator) resolveLast(tick model.Tick) (decimal.Decimal, bool) {
	if tick.Last != nil {
		return *tick.Last, true
	}
	if a.resolved {
		return a.point.Last, true
	}
	return decimal.Decimal{}, false
}

func (a *Aggregator) resolveTimeframe(tick model.Tick) time.Duration {
	if tick.Timeframe > 0 {
		return tick.Timeframe
	}
	if a.resolved && a.point.Timeframe > 0 {
		return a.point.Timeframe
	}
	return defaultTimeframe
}

func (a *Aggregator) storeBar(last decimal.Decimal, bucket time.Time) model.Bar {
	key := bucket.UnixNano()
	if idx, ok := a.barIndex[key]; ok {
		a.bars[idx] = a.bars[idx].Widen(last)
		return a.bars[idx]
	}
	bar := model.NewBar(last, bucket)
	a.barIndex[key] = len(a.bars)
	a.bars = append(a.bars, bar)
	return bar
}

func orDefault(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v != nil {
		return *v
	}
	return fallback
}
