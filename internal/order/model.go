package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusReturned   OrderStatus = "RETURNED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          uint
	Status          OrderStatus
	Total           decimal.Decimal
	ShippingAddress *string
	Reason          *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []OrderLine
}

// OrderLine is an immutable snapshot taken at purchase time. Price never
// follows later catalog changes.
type OrderLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uint
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	VoucherCode *string

	// Read-optimized projections for the snapshot returned to callers.
	BrandName    *string
	CategoryName *string
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CreateFromCartInput struct {
	VoucherCode     *string
	Note            *string
	ShippingAddress *string
}

type OrderItemInput struct {
	ProductID uint
	Quantity  int
	Price     decimal.Decimal
}

type CreateOrderInput struct {
	Items           []OrderItemInput
	VoucherCode     *string
	ShippingAddress *string
}

type UpdateStatusInput struct {
	Status OrderStatus
	Reason *string
}

type ListQuery struct {
	Page     int32
	Limit    int32
	Status   *OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

type Page struct {
	Orders []*Order
	Total  int64
	Pages  int32
}

type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
	GroupByYear  GroupBy = "year"
)

type StatsQuery struct {
	DateFrom *time.Time
	DateTo   *time.Time
	GroupBy  GroupBy
}

type Statistic struct {
	Period            string
	TotalOrders       int64
	TotalRevenue      decimal.Decimal
	AverageOrderValue decimal.Decimal
}
