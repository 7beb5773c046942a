package model

import (
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model/enum"
)

// Instrument describes a tradable asset. Name is the unique key across
// the whole engine. Basis is a weak reference (by name) to the underlying
// instrument of a derivative.
type Instrument struct {
	Name       string              `json:"name"`
	Type       enum.InstrumentType `json:"type"`
	Basis      string              `json:"basis,omitempty"`
	Derivative *Derivative         `json:"derivative,omitempty"`
	Point      *Point              `json:"point,omitempty"`
}

// Derivative carries option/future metadata. Greeks are opaque
// pass-through values, never computed here.
type Derivative struct {
	Strike            decimal.Decimal            `json:"strike"`
	Expiration        time.Time                  `json:"expiration"`
	Side              enum.Side                  `json:"side,omitempty"`
	ImpliedVolatility decimal.Decimal            `json:"impliedVolatility"`
	Greeks            map[string]decimal.Decimal `json:"greeks,omitempty"`
}

// WithPoint returns a copy of the instrument carrying the given quote.
func (i Instrument) WithPoint(p Point) Instrument {
	i.Point = &p
	return i
}
