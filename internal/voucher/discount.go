package voucher

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// CalculateDiscount computes the discount a validated voucher grants on
// the given order total. The result never exceeds the total and is never
// negative.
func CalculateDiscount(orderTotal decimal.Decimal, v *Voucher) decimal.Decimal {
	var amount decimal.Decimal

	switch v.DiscountType {
	case DiscountPercentage:
		amount = orderTotal.Mul(v.Value).Div(hundred)
		if v.MaxDiscountValue != nil {
			amount = decimal.Min(amount, *v.MaxDiscountValue)
		}
	case DiscountAmount:
		amount = v.Value
	default:
		return decimal.Zero
	}

	amount = decimal.Min(amount, orderTotal)
	if amount.IsNegative() {
		return decimal.Zero
	}

	return amount.Round(2)
}
