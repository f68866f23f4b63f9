package voucher

import (
	"context"
	"database/sql"
	"errors"

	"shopcore-be/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository interface {
	GetByCode(ctx context.Context, q db.DBTX, code string) (*Voucher, error)
	IsApplicable(ctx context.Context, q db.DBTX, voucherID uint, productIDs []uint, role string) (bool, error)
	CountUserRedemptions(ctx context.Context, q db.DBTX, voucherID, userID uint) (int, error)
	IncrementUsage(ctx context.Context, q db.DBTX, voucherID uint, code string) error
	RecordRedemption(ctx context.Context, q db.DBTX, voucherID, userID uint, orderID uuid.UUID) error
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) GetByCode(ctx context.Context, q db.DBTX, code string) (*Voucher, error) {
	var v Voucher
	err := q.QueryRowContext(ctx, `
		SELECT
			id, code, status, discount_type, value,
			min_order_value, max_discount_value,
			usage_limit, used_count, per_user_limit,
			start_date, expiration_date
		FROM vouchers
		WHERE code = $1
	`, code).Scan(
		&v.ID, &v.Code, &v.Status, &v.DiscountType, &v.Value,
		&v.MinOrderValue, &v.MaxDiscountValue,
		&v.UsageLimit, &v.UsedCount, &v.PerUserLimit,
		&v.StartDate, &v.ExpirationDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// IsApplicable reports whether the voucher's scope intersects the given
// product set (or the actor's role). An unscoped voucher applies to
// everything.
func (r *repository) IsApplicable(ctx context.Context, q db.DBTX, voucherID uint, productIDs []uint, role string) (bool, error) {
	ids := make([]int64, len(productIDs))
	for i, id := range productIDs {
		ids[i] = int64(id)
	}

	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT
			NOT EXISTS (
				SELECT 1 FROM voucher_scopes WHERE voucher_id = $1
			)
			OR EXISTS (
				SELECT 1
				FROM voucher_scopes s
				LEFT JOIN products p ON p.id = ANY($2)
				WHERE s.voucher_id = $1
				  AND (
					(s.scope_type = 'PRODUCT' AND s.ref = p.id::text)
					OR (s.scope_type = 'CATEGORY' AND s.ref = p.category_id::text)
					OR (s.scope_type = 'BRAND' AND s.ref = p.brand_id::text)
					OR (s.scope_type = 'ROLE' AND s.ref = $3)
				  )
			)
	`, voucherID, pq.Array(ids), role).Scan(&ok)

	return ok, err
}

func (r *repository) CountUserRedemptions(ctx context.Context, q db.DBTX, voucherID, userID uint) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM voucher_redemptions
		WHERE voucher_id = $1 AND user_id = $2
	`, voucherID, userID).Scan(&count)

	return count, err
}

// IncrementUsage bumps used_count atomically. The limit check lives in the
// WHERE clause so concurrent redemptions can never push used_count past
// usage_limit.
func (r *repository) IncrementUsage(ctx context.Context, q db.DBTX, voucherID uint, code string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE vouchers
		SET used_count = used_count + 1
		WHERE id = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`, voucherID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &InvalidError{Code: code, Reason: ReasonExhausted}
	}

	return nil
}

func (r *repository) RecordRedemption(ctx context.Context, q db.DBTX, voucherID, userID uint, orderID uuid.UUID) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO voucher_redemptions (voucher_id, user_id, order_id)
		VALUES ($1, $2, $3)
	`, voucherID, userID, orderID)

	return err
}
