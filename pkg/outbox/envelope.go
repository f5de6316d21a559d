package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// ActorRef identifies who produced the event. System jobs leave UserID nil.
type ActorRef struct {
	UserID  *uuid.UUID `json:"userId,omitempty"`
	StoreID *uuid.UUID `json:"storeId,omitempty"`
	Kind    string     `json:"kind"`
}

// ActorRefFrom converts a request actor into its event representation.
func ActorRefFrom(actor types.Actor) *ActorRef {
	return &ActorRef{UserID: actor.ActorID(), StoreID: actor.StoreID, Kind: string(actor.Kind)}
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// verbatim as the message body. Fields are only ever added.
type PayloadEnvelope struct {
	Version     int                   `json:"version"`
	EventID     string                `json:"eventId"`
	EventType   enums.OutboxEventType `json:"eventType,omitempty"`
	AggregateID string                `json:"aggregateId,omitempty"`
	OccurredAt  time.Time             `json:"occurredAt"`
	Actor       *ActorRef             `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}
