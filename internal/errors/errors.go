package errors

import (
	"errors"
	"fmt"
)

var (
	_ error = (*wrappedError)(nil)

	// ErrIncompleteTick marks a tick with no usable last price. The tick
	// is rejected and the aggregator state stays unchanged.
	ErrIncompleteTick = errors.New("tick has no usable last price")
)

func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Wrap(err error, text string) error {
	if err == nil {
		return nil
	}

	if len(text) == 0 {
		return err
	}

	return &wrappedError{
		err: err,
		msg: text,
	}
}

type wrappedError struct {
	err error
	msg string
}

const sep = ", err: "

func (err wrappedError) Error() string {
	if err.err == nil {
		return err.msg
	}

	return err.msg + sep + err.err.Error()
}

func (err wrappedError) Unwrap() error {
	if err.err == nil {
		return errors.New(err.msg)
	}

	return err.err
}

// ValidationError reports one bad field on one order leaf. A request
// batch containing any validation error persists nothing.
type ValidationError struct {
	OrderID string
	Field   string
	Reason  string
}

func (err ValidationError) Error() string {
	if err.OrderID == "" {
		return fmt.Sprintf("invalid order: %s %s", err.Field, err.Reason)
	}
	return fmt.Sprintf("invalid order %s: %s %s", err.OrderID, err.Field, err.Reason)
}

// Invalid builds a ValidationError for an order field.
func Invalid(orderID, field, reason string) error {
	return ValidationError{OrderID: orderID, Field: field, Reason: reason}
}
