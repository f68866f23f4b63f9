package product

import "github.com/shopspring/decimal"

type Product struct {
	ID         uint
	Name       string
	Price      decimal.Decimal
	Stock      int
	BrandID    *uint
	CategoryID *uint

	// Read-optimized projections, filled by joins.
	BrandName    *string
	CategoryName *string
}

// Line is a requested product quantity, the unit the inventory
// validator works on.
type Line struct {
	ProductID uint
	Quantity  int
}
