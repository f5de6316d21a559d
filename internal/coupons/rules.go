package coupons

import (
	"time"

	"github.com/angelmondragon/bazaar-backend/internal/pricing"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Check returns a validation error when coupon cannot be redeemed for an
// order of subtotal placed at now by a customer who already used it
// customerUses times.
func Check(coupon *models.Coupon, subtotal int, now time.Time, customerUses int64) error {
	switch {
	case coupon == nil:
		return invalid("coupon not found")
	case !coupon.IsActive:
		return invalid("coupon is not active")
	case !coupon.Type.IsValid():
		return invalid("coupon type is not supported")
	case coupon.ExpiresAt != nil && !now.Before(*coupon.ExpiresAt):
		return invalid("coupon has expired")
	case coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses:
		return invalid("coupon usage limit reached")
	case coupon.MaxUsesPerCustomer != nil && customerUses >= int64(*coupon.MaxUsesPerCustomer):
		return invalid("coupon already used by this customer")
	case subtotal < coupon.MinOrderCents:
		return invalid("order does not reach the coupon minimum of " + pricing.FormatAmount(coupon.MinOrderCents)).
			WithDetails(map[string]int{"min_order_cents": coupon.MinOrderCents, "subtotal_cents": subtotal})
	}
	return nil
}

// Terms extracts the pricing inputs of coupon.
func Terms(coupon *models.Coupon) *pricing.CouponTerms {
	if coupon == nil {
		return nil
	}
	return &pricing.CouponTerms{Type: coupon.Type, Value: coupon.Value}
}

func invalid(msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}
