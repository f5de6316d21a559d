package enums

// Outcome reports whether an idempotent operation changed anything.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeAlreadyProcessed Outcome = "already_processed"
)

func (o Outcome) String() string { return string(o) }
