package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopcore-be/internal/cart"
	"shopcore-be/internal/db"
	"shopcore-be/internal/logger"
	"shopcore-be/internal/metrics"
	"shopcore-be/internal/product"
	"shopcore-be/internal/utils"
	"shopcore-be/internal/voucher"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// priceTolerance is the maximum drift accepted between a client-submitted
// price and the current catalog price on direct orders.
var priceTolerance = decimal.NewFromFloat(0.01)

const maxOrderNumberRetries = 3

type Service interface {
	CreateOrderFromCart(ctx context.Context, userID uint, input CreateFromCartInput) (*Order, error)
	CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error)
	GetOrderByID(ctx context.Context, orderID uuid.UUID, userID uint) (*Order, error)
	GetUserOrders(ctx context.Context, userID uint, query ListQuery) (*Page, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, userID uint, input UpdateStatusInput) (*Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, userID uint, reason *string) (*Order, error)
	GetOrderStatistics(ctx context.Context, query StatsQuery) ([]Statistic, error)
}

type service struct {
	db           *sql.DB
	repo         Repository
	cartRepo     cart.Repository
	productRepo  product.Repository
	voucherRepo  voucher.Repository
	voucherCheck voucher.Validator
	metrics      *metrics.OrderMetrics
}

func NewService(
	sqlDB *sql.DB,
	repo Repository,
	cartRepo cart.Repository,
	productRepo product.Repository,
	voucherRepo voucher.Repository,
	voucherCheck voucher.Validator,
	m *metrics.OrderMetrics,
) Service {
	return &service{
		db:           sqlDB,
		repo:         repo,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		voucherRepo:  voucherRepo,
		voucherCheck: voucherCheck,
		metrics:      m,
	}
}

// CreateOrderFromCart turns the actor's cart into a persisted order inside
// one transaction: availability check, voucher validation, order + line
// snapshot, stock reservation, voucher usage, cart clearing. Any failure
// leaves nothing behind.
func (s *service) CreateOrderFromCart(ctx context.Context, userID uint, input CreateFromCartInput) (*Order, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: missing actor", ErrInvalidInput)
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrderFromCart"),
		zap.Uint("user_id", userID),
	)
	timer := metrics.StartTimer()

	var created *Order
	err := s.runOrderTx(ctx, func(tx *sql.Tx) error {
		lines, err := s.cartRepo.GetCartLines(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return cart.ErrCartEmpty
		}

		orderLines := make([]OrderLine, 0, len(lines))
		subtotal := decimal.Zero
		for _, l := range lines {
			orderLines = append(orderLines, OrderLine{
				ProductID:   l.ProductID,
				ProductName: l.ProductName,
				Quantity:    l.Quantity,
				Price:       l.Price,
			})
			subtotal = subtotal.Add(l.Subtotal())
		}

		o, err := s.persistOrder(ctx, tx, userID, orderLines, subtotal, input.VoucherCode, input.ShippingAddress, input.Note)
		if err != nil {
			return err
		}

		if err := s.cartRepo.ClearCart(ctx, tx, userID); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	log.Info("order created from cart",
		zap.String("order_id", created.ID.String()),
		zap.String("order_number", created.OrderNumber),
		zap.String("total", created.Total.String()),
		zap.Duration("took", timer.Duration()),
	)

	return created, nil
}

// CreateOrder runs the same pipeline on an explicit item list, additionally
// guarding against stale client-side prices.
func (s *service) CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*Order, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: missing actor", ErrInvalidInput)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidInput)
		}
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Uint("user_id", userID),
		zap.Int("item_count", len(input.Items)),
	)
	timer := metrics.StartTimer()

	var created *Order
	err := s.runOrderTx(ctx, func(tx *sql.Tx) error {
		ids := make([]uint, 0, len(input.Items))
		for _, item := range input.Items {
			ids = append(ids, item.ProductID)
		}

		products, err := s.productRepo.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]product.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		orderLines := make([]OrderLine, 0, len(input.Items))
		subtotal := decimal.Zero
		for _, item := range input.Items {
			p, ok := byID[item.ProductID]
			if !ok {
				return fmt.Errorf("product %d: %w", item.ProductID, product.ErrProductNotFound)
			}
			if item.Price.Sub(p.Price).Abs().GreaterThan(priceTolerance) {
				return &PriceMismatchError{
					ProductID: p.ID,
					Submitted: item.Price,
					Current:   p.Price,
				}
			}

			line := OrderLine{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    item.Quantity,
				Price:       p.Price,
			}
			orderLines = append(orderLines, line)
			subtotal = subtotal.Add(line.LineTotal())
		}

		o, err := s.persistOrder(ctx, tx, userID, orderLines, subtotal, input.VoucherCode, input.ShippingAddress, nil)
		if err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCreated.Inc()
	log.Info("order created",
		zap.String("order_id", created.ID.String()),
		zap.String("order_number", created.OrderNumber),
		zap.String("total", created.Total.String()),
		zap.Duration("took", timer.Duration()),
	)

	return created, nil
}

// persistOrder is the shared tail of both create pipelines. It must run
// inside the caller's transaction.
func (s *service) persistOrder(
	ctx context.Context,
	tx *sql.Tx,
	userID uint,
	lines []OrderLine,
	subtotal decimal.Decimal,
	voucherCode *string,
	shippingAddress *string,
	note *string,
) (*Order, error) {

	checks := make([]product.Line, 0, len(lines))
	productIDs := make([]uint, 0, len(lines))
	for _, l := range lines {
		checks = append(checks, product.Line{ProductID: l.ProductID, Quantity: l.Quantity})
		productIDs = append(productIDs, l.ProductID)
	}

	if err := s.productRepo.CheckAvailability(ctx, tx, checks); err != nil {
		return nil, err
	}

	var vc *voucher.Voucher
	discount := decimal.Zero
	if voucherCode != nil && *voucherCode != "" {
		var err error
		vc, err = s.voucherCheck.Check(ctx, tx, voucher.CheckInput{
			Code:       *voucherCode,
			ProductIDs: productIDs,
			UserID:     userID,
			Role:       utils.GetUserRoleFromContext(ctx),
			Subtotal:   subtotal,
		})
		if err != nil {
			return nil, err
		}
		discount = voucher.CalculateDiscount(subtotal, vc)
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := time.Now().UTC()
	o := &Order{
		ID:              uuid.New(),
		OrderNumber:     utils.GenerateOrderNumber(),
		UserID:          userID,
		Status:          StatusPending,
		Total:           total,
		ShippingAddress: shippingAddress,
		Reason:          note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].OrderID = o.ID
		if vc != nil {
			lines[i].VoucherCode = &vc.Code
		}
	}
	o.Lines = lines

	if err := s.repo.InsertOrder(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := s.repo.InsertLines(ctx, tx, o.Lines); err != nil {
		return nil, err
	}

	for _, l := range o.Lines {
		if err := s.productRepo.ReserveStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
	}

	if vc != nil {
		if err := s.voucherRepo.IncrementUsage(ctx, tx, vc.ID, vc.Code); err != nil {
			return nil, err
		}
		if err := s.voucherRepo.RecordRedemption(ctx, tx, vc.ID, userID, o.ID); err != nil {
			return nil, err
		}
		s.metrics.VouchersRedeemed.Inc()
	}

	return o, nil
}

// GetOrderByID is an ownership-checked point lookup.
func (s *service) GetOrderByID(ctx context.Context, orderID uuid.UUID, userID uint) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, s.db, orderID)
	if err != nil {
		return nil, s.classify(ctx, err)
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}

	return o, nil
}

// GetUserOrders returns one page of the actor's orders, newest first.
func (s *service) GetUserOrders(ctx context.Context, userID uint, query ListQuery) (*Page, error) {
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Status != nil && !query.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *query.Status)
	}

	orders, total, err := s.repo.ListByUser(ctx, s.db, userID, query)
	if err != nil {
		return nil, s.classify(ctx, err)
	}

	pages := int32((total + int64(query.Limit) - 1) / int64(query.Limit))

	return &Page{Orders: orders, Total: total, Pages: pages}, nil
}

// UpdateOrderStatus applies one lifecycle transition. Moving into CANCELLED
// restores every line's stock in the same transaction as the status write.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, userID uint, input UpdateStatusInput) (*Order, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}

	var updated *Order
	err := db.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := s.repo.GetOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrForbidden
		}

		if err := ValidateTransition(o.Status, input.Status); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, tx, orderID, input.Status, input.Reason); err != nil {
			return err
		}

		if input.Status == StatusCancelled {
			for _, l := range o.Lines {
				if err := s.productRepo.RestoreStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
					return err
				}
			}
		}

		o.Status = input.Status
		if input.Reason != nil {
			o.Reason = input.Reason
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, s.classify(ctx, err)
	}

	if input.Status == StatusCancelled {
		s.metrics.OrdersCancelled.Inc()
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(input.Status)),
	)

	return updated, nil
}

// CancelOrder is a convenience wrapper over the CANCELLED transition.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, userID uint, reason *string) (*Order, error) {
	return s.UpdateOrderStatus(ctx, orderID, userID, UpdateStatusInput{
		Status: StatusCancelled,
		Reason: reason,
	})
}

func (s *service) GetOrderStatistics(ctx context.Context, query StatsQuery) ([]Statistic, error) {
	stats, err := s.repo.Statistics(ctx, s.db, query)
	if err != nil {
		return nil, s.classify(ctx, err)
	}

	return stats, nil
}

// runOrderTx runs an order-creation transaction, regenerating the order
// number and retrying when the unique constraint on it trips.
func (s *service) runOrderTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberRetries; attempt++ {
		err = db.RunInTx(ctx, s.db, fn)
		if err == nil {
			return nil
		}
		if !isOrderNumberCollision(err) {
			break
		}
		logger.FromCtx(ctx).Warn("order number collision, retrying",
			zap.Int("attempt", attempt),
		)
	}

	return s.classify(ctx, err)
}

// classify passes domain errors through untouched and collapses anything
// unexpected into ErrTransactionAborted, logging the cause instead of
// leaking it.
func (s *service) classify(ctx context.Context, err error) error {
	for _, domain := range []error{
		ErrOrderNotFound,
		ErrForbidden,
		ErrInvalidInput,
		ErrInvalidTransition,
		ErrPriceMismatch,
		cart.ErrCartEmpty,
		product.ErrProductNotFound,
		product.ErrInsufficientStock,
		voucher.ErrVoucherNotFound,
		voucher.ErrVoucherInvalid,
	} {
		if errors.Is(err, domain) {
			if errors.Is(err, product.ErrInsufficientStock) {
				s.metrics.OrdersFailedStock.Inc()
			}
			return err
		}
	}

	logger.FromCtx(ctx).Error("order transaction aborted", zap.Error(err))
	return ErrTransactionAborted
}

func isOrderNumberCollision(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) &&
		string(pqErr.Code) == "23505" &&
		pqErr.Constraint == "orders_order_number_key"
}
