package cart

import (
	"context"

	"shopcore-be/internal/db"
	"shopcore-be/internal/logger"

	"go.uber.org/zap"
)

// Repository is the cart provider surface the order engine consumes: read
// the working set, then clear it inside the same transaction that created
// the order.
type Repository interface {
	GetCartLines(ctx context.Context, q db.DBTX, userID uint) ([]Line, error)
	ClearCart(ctx context.Context, q db.DBTX, userID uint) error
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) GetCartLines(ctx context.Context, q db.DBTX, userID uint) ([]Line, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.product_id, p.name, c.quantity, p.price
		FROM carts c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.Quantity, &l.Price); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

func (r *repository) ClearCart(ctx context.Context, q db.DBTX, userID uint) error {
	res, err := q.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	cleared, _ := res.RowsAffected()
	logger.FromCtx(ctx).Debug("cart cleared",
		zap.Uint("user_id", userID),
		zap.Int64("rows", cleared),
	)

	return nil
}
