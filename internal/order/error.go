package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrForbidden          = errors.New("forbidden: not the order owner")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPriceMismatch      = errors.New("price mismatch")
	ErrTransactionAborted = errors.New("order transaction aborted")
)

// TransitionError names both states of a rejected transition.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PriceMismatchError flags a stale client-side price on a direct order.
type PriceMismatchError struct {
	ProductID uint
	Submitted decimal.Decimal
	Current   decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf(
		"price mismatch for product %d: submitted %s, current %s",
		e.ProductID, e.Submitted.String(), e.Current.String(),
	)
}

func (e *PriceMismatchError) Unwrap() error {
	return ErrPriceMismatch
}
