package errors

import "testing"

func TestWrap(t *testing.T) {
	err := Wrap(New("boom"), "store tick")
	if err.Error() != "store tick, err: boom" {
		t.Fatalf("error mismatch: %+v", err)
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "ignored"); err != nil {
		t.Fatalf("expected nil, got %+v", err)
	}
}

func TestValidationError(t *testing.T) {
	err := Invalid("ord-1", "amount", "must be > 0")
	if err.Error() != "invalid order ord-1: amount must be > 0" {
		t.Fatalf("error mismatch: %+v", err)
	}

	var verr ValidationError
	if !As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected ValidationError, got %+v", err)
	}
}
