package voucher

import (
	"errors"
	"fmt"
)

var (
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrVoucherInvalid  = errors.New("voucher invalid")
)

// Rejection reasons surfaced to the caller.
const (
	ReasonNotYetActive  = "not yet active"
	ReasonExpired       = "expired"
	ReasonNotActive     = "not active"
	ReasonNotApplicable = "not applicable to these products"
	ReasonExhausted     = "usage limit reached"
	ReasonUserLimit     = "per-user limit reached"
	ReasonMinOrder      = "order total below minimum"
)

// InvalidError names the voucher and the first rule it failed.
// errors.Is(err, ErrVoucherInvalid) matches it.
type InvalidError struct {
	Code   string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("voucher %q invalid: %s", e.Code, e.Reason)
}

func (e *InvalidError) Unwrap() error {
	return ErrVoucherInvalid
}
