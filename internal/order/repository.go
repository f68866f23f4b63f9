package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopcore-be/internal/db"
	"shopcore-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	InsertOrder(ctx context.Context, q db.DBTX, o *Order) error
	InsertLines(ctx context.Context, q db.DBTX, lines []OrderLine) error
	GetOrderByID(ctx context.Context, q db.DBTX, orderID uuid.UUID) (*Order, error)
	GetOrderForUpdate(ctx context.Context, q db.DBTX, orderID uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, q db.DBTX, orderID uuid.UUID, status OrderStatus, reason *string) error
	ListByUser(ctx context.Context, q db.DBTX, userID uint, query ListQuery) ([]*Order, int64, error)
	Statistics(ctx context.Context, q db.DBTX, query StatsQuery) ([]Statistic, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) InsertOrder(ctx context.Context, q db.DBTX, o *Order) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, status, total,
			shipping_address, reason, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
	`,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.Total,
		o.ShippingAddress,
		o.Reason,
		o.CreatedAt,
	)

	return err
}

func (r *repository) InsertLines(ctx context.Context, q db.DBTX, lines []OrderLine) error {
	for i, line := range lines {
		_, err := q.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, quantity, price, voucher_code
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			line.ID,
			line.OrderID,
			line.ProductID,
			line.Quantity,
			line.Price,
			line.VoucherCode,
		)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	return nil
}

func (r *repository) GetOrderByID(ctx context.Context, q db.DBTX, orderID uuid.UUID) (*Order, error) {
	var o Order
	err := q.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, status, total,
		       shipping_address, reason, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Total,
		&o.ShippingAddress, &o.Reason, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	lines, err := r.fetchLines(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

// GetOrderForUpdate loads the order with a row lock so concurrent status
// transitions on the same order serialize.
func (r *repository) GetOrderForUpdate(ctx context.Context, q db.DBTX, orderID uuid.UUID) (*Order, error) {
	var o Order
	err := q.QueryRowContext(ctx, `
		SELECT id, order_number, user_id, status, total,
		       shipping_address, reason, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Total,
		&o.ShippingAddress, &o.Reason, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	lines, err := r.fetchLines(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

func (r *repository) fetchLines(ctx context.Context, q db.DBTX, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
		       oi.voucher_code, p.name, b.name, c.name
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.Price,
			&l.VoucherCode, &l.ProductName, &l.BrandName, &l.CategoryName,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, q db.DBTX, orderID uuid.UUID, status OrderStatus, reason *string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    reason = COALESCE($2, reason),
		    updated_at = NOW()
		WHERE id = $3
	`, status, reason, orderID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// ListByUser returns one page of the actor's orders, newest first, plus the
// unpaginated total for the same filters.
func (r *repository) ListByUser(ctx context.Context, q db.DBTX, userID uint, query ListQuery) ([]*Order, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "ListByUser"),
		zap.Uint("user_id", userID),
		zap.Int32("limit", query.Limit),
		zap.Int32("page", query.Page),
	)

	where := " WHERE o.user_id = $1"
	args := []any{userID}
	argIndex := 2

	if query.Status != nil {
		where += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, *query.Status)
		argIndex++
	}
	if query.DateFrom != nil {
		where += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
		args = append(args, *query.DateFrom)
		argIndex++
	}
	if query.DateTo != nil {
		where += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
		args = append(args, *query.DateTo)
		argIndex++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM orders o" + where
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	listQuery := `
		SELECT o.id, o.order_number, o.user_id, o.status, o.total,
		       o.shipping_address, o.reason, o.created_at, o.updated_at
		FROM orders o` + where +
		fmt.Sprintf(" ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, query.Limit, offset)

	rows, err := q.QueryContext(ctx, listQuery, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Total,
			&o.ShippingAddress, &o.Reason, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, 0, err
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	log.Debug("orders listed", zap.Int("count", len(orders)), zap.Int64("total", total))

	return orders, total, nil
}

// Statistics buckets orders by the requested period, newest bucket first.
func (r *repository) Statistics(ctx context.Context, q db.DBTX, query StatsQuery) ([]Statistic, error) {
	unit, format, err := periodSpec(query.GroupBy)
	if err != nil {
		return nil, err
	}

	where := " WHERE 1=1"
	args := []any{format}
	argIndex := 2

	if query.DateFrom != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *query.DateFrom)
		argIndex++
	}
	if query.DateTo != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *query.DateTo)
		argIndex++
	}

	// unit comes from the periodSpec whitelist, never from the caller.
	statsQuery := fmt.Sprintf(`
		SELECT to_char(date_trunc('%s', created_at), $1) AS period,
		       COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(AVG(total), 0)
		FROM orders`, unit) + where + `
		GROUP BY period
		ORDER BY period DESC`

	rows, err := q.QueryContext(ctx, statsQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []Statistic
	for rows.Next() {
		var s Statistic
		if err := rows.Scan(&s.Period, &s.TotalOrders, &s.TotalRevenue, &s.AverageOrderValue); err != nil {
			return nil, err
		}
		s.AverageOrderValue = s.AverageOrderValue.Round(2)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func periodSpec(g GroupBy) (unit, format string, err error) {
	switch g {
	case GroupByDay:
		return "day", "YYYY-MM-DD", nil
	case GroupByWeek:
		return "week", `IYYY-"W"IW`, nil
	case GroupByMonth:
		return "month", "YYYY-MM", nil
	case GroupByYear:
		return "year", "YYYY", nil
	default:
		return "", "", fmt.Errorf("%w: unknown group-by period %q", ErrInvalidInput, g)
	}
}
