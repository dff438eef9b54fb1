package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetNX(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, err := m.SetNX(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}

	ok, err = m.SetNX(ctx, "k", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX must report existing key, got %v, %v", ok, err)
	}

	ok, err = m.SetNX(ctx, "other", time.Minute)
	if err != nil || !ok {
		t.Fatalf("independent key SetNX = %v, %v", ok, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	if ok, _ := m.SetNX(context.Background(), "k", time.Minute); !ok {
		t.Fatalf("first SetNX failed")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := m.SetNX(context.Background(), "k", time.Minute); ok {
		t.Fatalf("key must still be held before expiry")
	}

	now = now.Add(time.Minute)
	if ok, _ := m.SetNX(context.Background(), "k", time.Minute); !ok {
		t.Fatalf("key must be reusable after expiry")
	}
}
