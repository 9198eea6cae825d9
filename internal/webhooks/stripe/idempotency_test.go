package stripewebhook

import (
	"context"
	"testing"
	"time"
)

type fakeIdempotencyStore struct {
	data map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{data: map[string]string{}}
}

func (f *fakeIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return f.data[key], nil
}

func (f *fakeIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = "1"
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "tp:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestIdempotencyGuardCheckAndMark(t *testing.T) {
	guard, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, "stripe_event")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard error: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be marked seen")
	}

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !seen {
		t.Fatal("redelivery must be marked seen")
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("check after delete: %v", err)
	}
	if seen {
		t.Fatal("deleting the mark must allow redelivery")
	}
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "stripe_event"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), -time.Second, "stripe_event"); err == nil {
		t.Fatal("expected error for negative ttl")
	}
	if _, err := NewIdempotencyGuard(newFakeIdempotencyStore(), time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}
}
