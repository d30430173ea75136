package cache

import (
	"context"
	"testing"
	"time"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory(MemoryParams{})
	t.Cleanup(m.Stop)
	return m
}

func TestMemorySetGet(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	if err := m.Set(ctx, "accessible:1", "[1,2,3]", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := m.Get(ctx, "accessible:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if value != "[1,2,3]" {
		t.Fatalf("expected stored value, got %q", value)
	}
}

func TestMemoryMiss(t *testing.T) {
	m := newTestMemory(t)

	_, ok, err := m.Get(context.Background(), "accessible:404")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	if err := m.Set(ctx, "accessible:1", "[1]", 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	_, ok, err := m.Get(ctx, "accessible:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := m.Set(ctx, key, "v", 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := m.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	for _, key := range []string{"a", "b"} {
		if _, ok, _ := m.Get(ctx, key); ok {
			t.Fatalf("expected %q deleted", key)
		}
	}
	if _, ok, _ := m.Get(ctx, "c"); !ok {
		t.Fatal("expected untouched key to survive")
	}
}

func TestMemoryDeleteMatching(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	entries := map[string]string{
		"accessible:1":            "[1]",
		"accessible:2":            "[2]",
		"structure:descendants:1": "[2,3]",
	}
	for key, value := range entries {
		if err := m.Set(ctx, key, value, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := m.DeleteMatching(ctx, "accessible:"); err != nil {
		t.Fatalf("DeleteMatching failed: %v", err)
	}

	for _, key := range []string{"accessible:1", "accessible:2"} {
		if _, ok, _ := m.Get(ctx, key); ok {
			t.Fatalf("expected %q dropped by prefix", key)
		}
	}
	if _, ok, _ := m.Get(ctx, "structure:descendants:1"); !ok {
		t.Fatal("expected other family to survive prefix deletion")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", m.Len())
	}
}
