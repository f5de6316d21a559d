package enums

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeSale    TransactionType = "sale"
	TransactionTypeFee     TransactionType = "fee"
	TransactionTypePayout  TransactionType = "payout"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypeCredit  TransactionType = "credit"
	TransactionTypeRelease TransactionType = "release"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeSale,
	TransactionTypeFee,
	TransactionTypePayout,
	TransactionTypeRefund,
	TransactionTypeCredit,
	TransactionTypeRelease,
}

func (t TransactionType) String() string { return string(t) }

func (t TransactionType) IsValid() bool { return oneOf(validTransactionTypes, t) }

func ParseTransactionType(value string) (TransactionType, error) {
	return parse(validTransactionTypes, value, "transaction type")
}

type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "credit"
	DirectionDebit  TransactionDirection = "debit"
)

var validDirections = []TransactionDirection{DirectionCredit, DirectionDebit}

func (d TransactionDirection) String() string { return string(d) }

func (d TransactionDirection) IsValid() bool { return oneOf(validDirections, d) }

// Apply moves balance by amount in the direction d.
func (d TransactionDirection) Apply(balance, amount int) int {
	if d == DirectionDebit {
		return balance - amount
	}
	return balance + amount
}

func ParseTransactionDirection(value string) (TransactionDirection, error) {
	return parse(validDirections, value, "transaction direction")
}

// BalanceField names the store balance column an entry moves.
type BalanceField string

const (
	BalanceFieldSpendable BalanceField = "balance"
	BalanceFieldPending   BalanceField = "pending_balance"
)

var validBalanceFields = []BalanceField{BalanceFieldSpendable, BalanceFieldPending}

func (f BalanceField) String() string { return string(f) }

func (f BalanceField) IsValid() bool { return oneOf(validBalanceFields, f) }

// Column returns the stores column backing the field.
func (f BalanceField) Column() string {
	if f == BalanceFieldPending {
		return "pending_balance_cents"
	}
	return "balance_cents"
}

// BalanceFields lists every projected balance in a stable order.
func BalanceFields() []BalanceField {
	out := make([]BalanceField, len(validBalanceFields))
	copy(out, validBalanceFields)
	return out
}

func ParseBalanceField(value string) (BalanceField, error) {
	return parse(validBalanceFields, value, "balance field")
}

// TransactionStatus is the only mutable attribute of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusPending,
	TransactionStatusCompleted,
	TransactionStatusFailed,
	TransactionStatusReversed,
}

var transactionTransitions = transitionTable[TransactionStatus]{
	TransactionStatusPending:   {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted: {TransactionStatusReversed},
}

func (s TransactionStatus) String() string { return string(s) }

func (s TransactionStatus) IsValid() bool { return oneOf(validTransactionStatuses, s) }

func (s TransactionStatus) CanTransitionTo(target TransactionStatus) bool {
	return transactionTransitions.allows(s, target)
}

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	return parse(validTransactionStatuses, value, "transaction status")
}
