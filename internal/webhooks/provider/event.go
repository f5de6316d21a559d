package provider

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	EventPayoutProcessing EventType = "payout.processing"
	EventPayoutCompleted  EventType = "payout.completed"
	EventPayoutFailed     EventType = "payout.failed"
)

// Event is the provider callback envelope.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

type PaymentData struct {
	OrderID     uuid.UUID      `json:"order_id"`
	Reference   string         `json:"reference"`
	AmountCents int            `json:"amount_cents"`
	Currency    enums.Currency `json:"currency"`
	Reason      string         `json:"reason,omitempty"`
}

type PayoutData struct {
	PayoutID          uuid.UUID `json:"payout_id"`
	ExternalReference string    `json:"external_reference,omitempty"`
	Reason            string    `json:"reason,omitempty"`
}

// ParseEvent decodes and sanity checks a verified payload.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	event.ID = strings.TrimSpace(event.ID)
	if event.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event id is required")
	}
	if event.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type is required")
	}
	return &event, nil
}

func (e *Event) decode(out any) error {
	if len(e.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event data is required")
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode "+string(e.Type)+" data")
	}
	return nil
}
