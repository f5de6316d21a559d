package payouts

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

type feeSchedule struct {
	rate     decimal.Decimal
	minCents int64
}

var feeSchedules = map[enums.PayoutMethod]feeSchedule{
	enums.PayoutMethodMobileMoney:  {rate: decimal.RequireFromString("0.01"), minCents: 100},
	enums.PayoutMethodBankTransfer: {rate: decimal.RequireFromString("0.015"), minCents: 500},
	enums.PayoutMethodPayPal:       {rate: decimal.RequireFromString("0.02")},
}

// Fee returns the disbursement fee for amount sent through method. Unknown
// methods are free. The percentage rounds half away from zero before the
// floor is applied.
func Fee(method enums.PayoutMethod, amountCents int) int {
	schedule, ok := feeSchedules[method]
	if !ok || amountCents <= 0 {
		return 0
	}
	fee := decimal.NewFromInt(int64(amountCents)).Mul(schedule.rate).Round(0).IntPart()
	if fee < schedule.minCents {
		fee = schedule.minCents
	}
	return int(fee)
}
