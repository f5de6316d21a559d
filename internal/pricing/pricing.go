// Package pricing holds the side-effect-free money math used while creating
// orders: coupon discounts, shipping waivers and marketplace commission.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

const basisPoints = 10000

// CouponTerms is the subset of a coupon that affects the amounts.
type CouponTerms struct {
	Type  enums.CouponType
	Value int
}

// Discount returns the monetary discount of terms against subtotal.
// Percentages round half away from zero; fixed amounts never exceed the
// subtotal; free shipping is not a monetary discount.
func Discount(terms CouponTerms, subtotal int) int {
	if subtotal <= 0 || terms.Value <= 0 {
		return 0
	}
	switch terms.Type {
	case enums.CouponTypePercentage:
		pct := terms.Value
		if pct > 100 {
			pct = 100
		}
		return int(decimal.NewFromInt(int64(subtotal)).
			Mul(decimal.NewFromInt(int64(pct))).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart())
	case enums.CouponTypeFixedAmount:
		if terms.Value > subtotal {
			return subtotal
		}
		return terms.Value
	default:
		return 0
	}
}

// ApplyShipping returns the shipping amount left after the coupon.
func ApplyShipping(terms *CouponTerms, shipping int) int {
	if terms != nil && terms.Type == enums.CouponTypeFreeShipping {
		return 0
	}
	return shipping
}

// Commission returns round(total * rateBps / 10000).
func Commission(total, rateBps int) int {
	if total <= 0 || rateBps <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(total)).
		Mul(decimal.NewFromInt(int64(rateBps))).
		Div(decimal.NewFromInt(basisPoints)).
		Round(0).
		IntPart())
}

// Total computes subtotal - discount + shipping and refuses a negative result.
func Total(subtotal, discount, shipping int) (int, error) {
	total := subtotal - discount + shipping
	if total < 0 {
		return 0, fmt.Errorf("total %d is negative (subtotal %d, discount %d, shipping %d)", total, subtotal, discount, shipping)
	}
	return total, nil
}

// CouponLabel renders a short human label such as "10% off".
func CouponLabel(terms CouponTerms) string {
	switch terms.Type {
	case enums.CouponTypePercentage:
		return fmt.Sprintf("%d%% off", terms.Value)
	case enums.CouponTypeFixedAmount:
		return fmt.Sprintf("%s off", FormatAmount(terms.Value))
	case enums.CouponTypeFreeShipping:
		return "Free shipping"
	default:
		return ""
	}
}

// FormatAmount groups thousands: 12500 -> "12,500".
func FormatAmount(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + string(out)
}
