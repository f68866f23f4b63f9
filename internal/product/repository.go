package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopcore-be/internal/db"
	"shopcore-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository is the narrow catalog surface this core consumes. Stock is the
// only product field it mutates; everything else is read-only here.
type Repository interface {
	FindByIDs(ctx context.Context, q db.DBTX, ids []uint) ([]Product, error)
	CheckAvailability(ctx context.Context, q db.DBTX, lines []Line) error
	ReserveStock(ctx context.Context, q db.DBTX, productID uint, qty int) error
	RestoreStock(ctx context.Context, q db.DBTX, productID uint, qty int) error
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) FindByIDs(ctx context.Context, q db.DBTX, ids []uint) ([]Product, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT
			p.id, p.name, p.price, p.stock,
			p.brand_id, p.category_id,
			b.name, c.name
		FROM products p
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ANY($1)
	`, pq.Array(toInt64(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Price, &p.Stock,
			&p.BrandID, &p.CategoryID,
			&p.BrandName, &p.CategoryName,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// CheckAvailability verifies every requested line against current stock.
// The read is advisory: the conditional update in ReserveStock is what
// actually guards against overselling under concurrency.
func (r *repository) CheckAvailability(ctx context.Context, q db.DBTX, lines []Line) error {
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, stock
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(toInt64(ids)))
	if err != nil {
		return err
	}
	defer rows.Close()

	stocks := make(map[uint]int, len(lines))
	for rows.Next() {
		var id uint
		var stock int
		if err := rows.Scan(&id, &stock); err != nil {
			return err
		}
		stocks[id] = stock
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, l := range lines {
		available, ok := stocks[l.ProductID]
		if !ok {
			return fmt.Errorf("product %d: %w", l.ProductID, ErrProductNotFound)
		}
		if available < l.Quantity {
			return &InsufficientStockError{
				ProductID: l.ProductID,
				Requested: l.Quantity,
				Available: available,
			}
		}
	}

	return nil
}

// ReserveStock decrements stock atomically. The WHERE clause makes the
// read-check and the write one statement, so two concurrent transactions
// can never both pass validation on the same stale stock value.
func (r *repository) ReserveStock(ctx context.Context, q db.DBTX, productID uint, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`, qty, productID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing product from an oversell attempt.
	var available int
	err = q.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).
		Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}
	if err != nil {
		return err
	}

	logger.FromCtx(ctx).Warn("stock reservation rejected",
		zap.Uint("product_id", productID),
		zap.Int("requested", qty),
		zap.Int("available", available),
	)

	return &InsufficientStockError{
		ProductID: productID,
		Requested: qty,
		Available: available,
	}
}

// RestoreStock puts a cancelled order's quantity back.
func (r *repository) RestoreStock(ctx context.Context, q db.DBTX, productID uint, qty int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1
		WHERE id = $2
	`, qty, productID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	}

	return nil
}

func toInt64(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
