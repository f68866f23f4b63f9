package voucher

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountAmount     DiscountType = "AMOUNT"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisabled Status = "DISABLED"
)

type ScopeType string

const (
	ScopeProduct  ScopeType = "PRODUCT"
	ScopeCategory ScopeType = "CATEGORY"
	ScopeBrand    ScopeType = "BRAND"
	ScopeRole     ScopeType = "ROLE"
)

// Voucher rows are produced by the auto-generation scheduler elsewhere;
// this core only reads them and bumps used_count on redemption.
type Voucher struct {
	ID               uint
	Code             string
	Status           Status
	DiscountType     DiscountType
	Value            decimal.Decimal
	MinOrderValue    *decimal.Decimal
	MaxDiscountValue *decimal.Decimal
	UsageLimit       *int
	UsedCount        int
	PerUserLimit     *int
	StartDate        time.Time
	ExpirationDate   time.Time
}
