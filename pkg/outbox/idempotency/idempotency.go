// Package idempotency dedupes externally delivered events per consumer.
//
// A delivery is claimed for a short processing window, then confirmed for
// the long retention TTL once its handler commits. A handler that crashes
// mid-way leaves only the short claim behind, so the sender's retry is
// processed instead of being acknowledged as a duplicate.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// DefaultClaimTTL bounds how long an unconfirmed claim blocks redelivery.
const DefaultClaimTTL = 5 * time.Minute

const (
	markerProcessing = "processing"
	markerProcessed  = "processed"
)

// ClaimState reports what Claim found for an event.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the event and must Confirm or Release it.
	ClaimAcquired ClaimState = iota
	// ClaimProcessed means a previous delivery was confirmed.
	ClaimProcessed
	// ClaimInFlight means another delivery holds an unconfirmed claim.
	ClaimInFlight
)

func (s ClaimState) String() string {
	switch s {
	case ClaimAcquired:
		return "acquired"
	case ClaimProcessed:
		return "processed"
	case ClaimInFlight:
		return "in_flight"
	}
	return "unknown"
}

// Manager keeps claims under `bz:idempotency:evt:<consumer>:<event_id>`.
type Manager struct {
	store    redis.IdempotencyStore
	ttl      time.Duration
	claimTTL time.Duration
	now      func() time.Time
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	claimTTL := DefaultClaimTTL
	if ttl > 0 && ttl < claimTTL {
		claimTTL = ttl
	}
	return &Manager{store: store, ttl: ttl, claimTTL: claimTTL, now: time.Now}, nil
}

// Claim takes the processing claim for eventID unless one already exists.
func (m *Manager) Claim(ctx context.Context, consumer, eventID string) (ClaimState, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return ClaimInFlight, err
	}
	acquired, err := m.store.SetNX(ctx, key, m.marker(markerProcessing), m.claimTTL)
	if err != nil {
		return ClaimInFlight, err
	}
	if acquired {
		return ClaimAcquired, nil
	}

	current, err := m.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return ClaimInFlight, nil
	}
	if err != nil {
		return ClaimInFlight, err
	}
	if strings.HasPrefix(current, markerProcessed) {
		return ClaimProcessed, nil
	}
	return ClaimInFlight, nil
}

// Confirm marks a claimed event processed for the retention TTL.
func (m *Manager) Confirm(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, m.marker(markerProcessed), m.ttl)
}

// Release drops a claim so a failed handler can be retried.
func (m *Manager) Release(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) marker(state string) string {
	return state + ":" + m.now().UTC().Format(time.RFC3339)
}

func (m *Manager) key(consumer, eventID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID), nil
}
