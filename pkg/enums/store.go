package enums

// StorePlan is the vendor subscription tier which drives commission.
type StorePlan string

const (
	StorePlanFree     StorePlan = "free"
	StorePlanPro      StorePlan = "pro"
	StorePlanBusiness StorePlan = "business"
)

var validStorePlans = []StorePlan{StorePlanFree, StorePlanPro, StorePlanBusiness}

var commissionRateBps = map[StorePlan]int{
	StorePlanFree:     500,
	StorePlanPro:      300,
	StorePlanBusiness: 200,
}

func (p StorePlan) String() string { return string(p) }

func (p StorePlan) IsValid() bool { return oneOf(validStorePlans, p) }

// CommissionRateBps returns the marketplace cut in basis points. Unknown plans
// are charged the free rate.
func (p StorePlan) CommissionRateBps() int {
	if rate, ok := commissionRateBps[p]; ok {
		return rate
	}
	return commissionRateBps[StorePlanFree]
}

func ParseStorePlan(value string) (StorePlan, error) {
	return parse(validStorePlans, value, "store plan")
}
