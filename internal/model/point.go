package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a raw inbound quote update. Any field except Name and Time may
// be absent; absent fields are resolved against the previous point by the
// price aggregator.
type Tick struct {
	Name      string           `json:"name"`
	Bid       *decimal.Decimal `json:"bid,omitempty"`
	Ask       *decimal.Decimal `json:"ask,omitempty"`
	BidSize   *decimal.Decimal `json:"bidSize,omitempty"`
	AskSize   *decimal.Decimal `json:"askSize,omitempty"`
	Last      *decimal.Decimal `json:"last,omitempty"`
	Time      time.Time        `json:"time"`
	Timeframe time.Duration    `json:"timeframe"`
}

// Point is a fully resolved quote. Last is always present.
type Point struct {
	Name      string          `json:"name"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	BidSize   decimal.Decimal `json:"bidSize"`
	AskSize   decimal.Decimal `json:"askSize"`
	Last      decimal.Decimal `json:"last"`
	Time      time.Time       `json:"time"`
	Timeframe time.Duration   `json:"timeframe"`
	Bar       Bar             `json:"bar"`
}

// Bar is one OHLC bucket. Time is the bucket start.
type Bar struct {
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
	Time  time.Time       `json:"time"`
}

// Bucket truncates t to the bar bucket containing it.
func Bucket(t time.Time, timeframe time.Duration) time.Time {
	if timeframe <= 0 {
		return t
	}
	return t.Truncate(timeframe)
}

// NewBar opens a bucket with every OHLC field set to price.
func NewBar(price decimal.Decimal, bucket time.Time) Bar {
	return Bar{Open: price, High: price, Low: price, Close: price, Time: bucket}
}

// Widen folds price into the bar, keeping low <= {open,close} <= high.
func (b Bar) Widen(price decimal.Decimal) Bar {
	if price.LessThan(b.Low) {
		b.Low = price
	}
	if price.GreaterThan(b.High) {
		b.High = price
	}
	b.Close = price
	return b
}
