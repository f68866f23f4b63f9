package cart

import "github.com/shopspring/decimal"

// Line is one cart row joined with its product, carrying the price the
// order engine snapshots at checkout time.
type Line struct {
	ProductID   uint
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
