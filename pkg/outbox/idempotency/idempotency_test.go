package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "bz:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

const eventKey = "bz:idempotency:evt:provider-webhook:evt_123"

func TestClaimConfirmLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	state, err := manager.Claim(ctx, "provider-webhook", "evt_123")
	if err != nil || state != ClaimAcquired {
		t.Fatalf("expected acquired, got %s %v", state, err)
	}
	if store.ttls[eventKey] != DefaultClaimTTL {
		t.Fatalf("expected short claim ttl, got %s", store.ttls[eventKey])
	}

	if state, _ := manager.Claim(ctx, "provider-webhook", "evt_123"); state != ClaimInFlight {
		t.Fatalf("expected in_flight while unconfirmed, got %s", state)
	}

	if err := manager.Confirm(ctx, "provider-webhook", "evt_123"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if store.ttls[eventKey] != 24*time.Hour || !strings.HasPrefix(store.values[eventKey], markerProcessed) {
		t.Fatalf("unexpected confirmed record %q ttl %s", store.values[eventKey], store.ttls[eventKey])
	}
	if state, _ := manager.Claim(ctx, "provider-webhook", "evt_123"); state != ClaimProcessed {
		t.Fatalf("expected processed, got %s", state)
	}
}

func TestReleaseAllowsRedelivery(t *testing.T) {
	ctx := context.Background()
	manager, _ := NewManager(newMemoryStore(), time.Hour)

	if _, err := manager.Claim(ctx, "provider-webhook", "evt_9"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := manager.Release(ctx, "provider-webhook", "evt_9"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if state, _ := manager.Claim(ctx, "provider-webhook", "evt_9"); state != ClaimAcquired {
		t.Fatalf("expected reacquire after release, got %s", state)
	}
}

func TestClaimTTLNeverExceedsRetention(t *testing.T) {
	store := newMemoryStore()
	manager, _ := NewManager(store, time.Minute)
	if _, err := manager.Claim(context.Background(), "provider-webhook", "evt_123"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if store.ttls[eventKey] != time.Minute {
		t.Fatalf("expected claim ttl capped at retention, got %s", store.ttls[eventKey])
	}
}

func TestClaimErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("boom")
	manager, _ := NewManager(store, time.Hour)
	if _, err := manager.Claim(context.Background(), "provider-webhook", "evt_1"); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := manager.Claim(context.Background(), "provider-webhook", "  "); err == nil {
		t.Fatal("expected error for blank event id")
	}
	if _, err := manager.Claim(context.Background(), "", "evt_1"); err == nil {
		t.Fatal("expected error for missing consumer")
	}
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(store, -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
