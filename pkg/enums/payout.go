package enums

type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusPending,
	PayoutStatusProcessing,
	PayoutStatusCompleted,
	PayoutStatusFailed,
}

var payoutTransitions = transitionTable[PayoutStatus]{
	PayoutStatusPending:    {PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed},
	PayoutStatusProcessing: {PayoutStatusCompleted, PayoutStatusFailed},
}

func (s PayoutStatus) String() string { return string(s) }

func (s PayoutStatus) IsValid() bool { return oneOf(validPayoutStatuses, s) }

func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	return payoutTransitions.allows(s, target)
}

func ParsePayoutStatus(value string) (PayoutStatus, error) {
	return parse(validPayoutStatuses, value, "payout status")
}

// PayoutMethod is free-form on the wire; only the known methods carry a fee.
type PayoutMethod string

const (
	PayoutMethodMobileMoney  PayoutMethod = "mobile_money"
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodPayPal       PayoutMethod = "paypal"
)

var knownPayoutMethods = []PayoutMethod{
	PayoutMethodMobileMoney,
	PayoutMethodBankTransfer,
	PayoutMethodPayPal,
}

func (m PayoutMethod) String() string { return string(m) }

// IsKnown reports whether the method has a configured fee schedule.
func (m PayoutMethod) IsKnown() bool { return oneOf(knownPayoutMethods, m) }
