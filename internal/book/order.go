package book

import (
	"main/internal/errors"
	"main/internal/model"
	"main/internal/model/enum"
)

// Validate collects every validation error on the order and its
// children, recursively. An order that only groups children (no amount
// of its own) is not checked as a leaf.
func Validate(o model.Order) []error {
	var errs []error
	if o.Instruction != enum.InstructionGroup || o.Amount.IsPositive() {
		errs = append(errs, validateLeaf(o)...)
	}
	for _, child := range o.Orders {
		errs = append(errs, Validate(child)...)
	}
	return errs
}

func validateLeaf(o model.Order) []error {
	var errs []error
	if !o.Amount.IsPositive() {
		errs = append(errs, errors.Invalid(o.ID, "amount", "must be > 0"))
	}
	if o.Type.RequiresPrice() && !o.Price.IsPositive() {
		errs = append(errs, errors.Invalid(o.ID, "price", "required for "+o.Type.String()+" orders"))
	}
	if o.Type == enum.OrderTypeStopLimit && !o.ActivationPrice.IsPositive() {
		errs = append(errs, errors.Invalid(o.ID, "activationPrice", "required for StopLimit orders"))
	}
	return errs
}

// Executable decides whether a pending order fires against a quote. It
// is pure except for the one-way StopLimit downgrade: once the
// activation price is crossed the returned order carries type Limit and
// must replace the stored snapshot. A quote for a different instrument
// never fires and never changes state.
func Executable(o model.Order, p model.Point) (model.Order, bool) {
	if p.Name != o.Instrument {
		return o, false
	}

	if o.Type == enum.OrderTypeStopLimit {
		activated := (o.Side == enum.SideLong && p.Ask.GreaterThanOrEqual(o.ActivationPrice)) ||
			(o.Side == enum.SideShort && p.Bid.LessThanOrEqual(o.ActivationPrice))
		if activated {
			o.Type = enum.OrderTypeLimit
		}
		return o, false
	}

	switch o.Type {
	case enum.OrderTypeMarket:
		return o, true
	case enum.OrderTypeStop:
		if o.Side == enum.SideLong {
			return o, p.Ask.GreaterThanOrEqual(o.Price)
		}
		return o, p.Bid.LessThanOrEqual(o.Price)
	case enum.OrderTypeLimit:
		if o.Side == enum.SideLong {
			return o, p.Ask.LessThanOrEqual(o.Price)
		}
		return o, p.Bid.GreaterThanOrEqual(o.Price)
	default:
		return o, false
	}
}

// Fill materializes the order as a position snapshot at the quote's last
// price, embedding the instrument state at fill time.
func Fill(o model.Order, p model.Point) model.Order {
	o.Operation = model.Operation{
		Status:       enum.StatusPosition,
		Amount:       o.Amount,
		AveragePrice: p.Last,
		Instrument:   model.Instrument{Name: o.Instrument}.WithPoint(p),
		Time:         p.Time,
	}
	return o
}
