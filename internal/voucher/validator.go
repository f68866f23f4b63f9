package voucher

import (
	"context"
	"time"

	"shopcore-be/internal/db"
	"shopcore-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckInput carries everything the rule chain needs: the code, the
// product set it must apply to, the actor, and the order subtotal for the
// minimum-order-value rule.
type CheckInput struct {
	Code       string
	ProductIDs []uint
	UserID     uint
	Role       string
	Subtotal   decimal.Decimal
}

// Validator runs the voucher rule chain. The first failing rule determines
// the returned error.
type Validator interface {
	Check(ctx context.Context, q db.DBTX, in CheckInput) (*Voucher, error)
}

type validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository) Validator {
	return &validator{repo: repo, now: time.Now}
}

func (v *validator) Check(ctx context.Context, q db.DBTX, in CheckInput) (*Voucher, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("voucher_code", in.Code),
		zap.Uint("user_id", in.UserID),
	)

	vc, err := v.repo.GetByCode(ctx, q, in.Code)
	if err != nil {
		return nil, err
	}

	now := v.now()

	if now.Before(vc.StartDate) {
		return nil, &InvalidError{Code: vc.Code, Reason: ReasonNotYetActive}
	}
	if now.After(vc.ExpirationDate) {
		return nil, &InvalidError{Code: vc.Code, Reason: ReasonExpired}
	}
	if vc.Status != StatusActive {
		return nil, &InvalidError{Code: vc.Code, Reason: ReasonNotActive}
	}

	applicable, err := v.repo.IsApplicable(ctx, q, vc.ID, in.ProductIDs, in.Role)
	if err != nil {
		return nil, err
	}
	if !applicable {
		return nil, &InvalidError{Code: vc.Code, Reason: ReasonNotApplicable}
	}

	if vc.UsageLimit != nil && vc.UsedCount >= *vc.UsageLimit {
		return nil, &InvalidError{Code: vc.Code, Reason: ReasonExhausted}
	}

	if vc.PerUserLimit != nil {
		used, err := v.repo.CountUserRedemptions(ctx, q, vc.ID, in.UserID)
		if err != nil {
			return nil, err
		}
		if used >= *vc.PerUserLimit {
			return nil, &InvalidError{Code: vc.Code, Reason: ReasonUserLimit}
		}
	}

	if vc.MinOrderValue != nil && in.Subtotal.LessThan(*vc.MinOrderValue) {
		return nil, &InvalidError{Code: vc.Code, Reason: ReasonMinOrder}
	}

	log.Debug("voucher validated",
		zap.String("discount_type", string(vc.DiscountType)),
		zap.String("value", vc.Value.String()),
	)

	return vc, nil
}
