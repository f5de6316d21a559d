package enums

type ReturnStatus string

const (
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusReceived  ReturnStatus = "received"
	ReturnStatusRefunded  ReturnStatus = "refunded"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusReceived,
	ReturnStatusRefunded,
}

var returnTransitions = transitionTable[ReturnStatus]{
	ReturnStatusRequested: {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:  {ReturnStatusReceived},
	ReturnStatusReceived:  {ReturnStatusRefunded},
}

// openReturnStatuses block a second return on the same order.
var openReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusReceived,
}

func (s ReturnStatus) String() string { return string(s) }

func (s ReturnStatus) IsValid() bool { return oneOf(validReturnStatuses, s) }

func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	return returnTransitions.allows(s, target)
}

func (s ReturnStatus) IsOpen() bool { return oneOf(openReturnStatuses, s) }

// OpenReturnStatuses returns the statuses counted as an in-flight return.
func OpenReturnStatuses() []ReturnStatus {
	out := make([]ReturnStatus, len(openReturnStatuses))
	copy(out, openReturnStatuses)
	return out
}

func ParseReturnStatus(value string) (ReturnStatus, error) {
	return parse(validReturnStatuses, value, "return status")
}
