package enums

type CouponType string

const (
	CouponTypePercentage   CouponType = "percentage"
	CouponTypeFixedAmount  CouponType = "fixed_amount"
	CouponTypeFreeShipping CouponType = "free_shipping"
)

var validCouponTypes = []CouponType{
	CouponTypePercentage,
	CouponTypeFixedAmount,
	CouponTypeFreeShipping,
}

func (t CouponType) String() string { return string(t) }

func (t CouponType) IsValid() bool { return oneOf(validCouponTypes, t) }

func ParseCouponType(value string) (CouponType, error) {
	return parse(validCouponTypes, value, "coupon type")
}
