package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLocalStore_SetNX(t *testing.T) {
	store := NewLocalStore(time.Hour, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "reminder:15551234567:morning:2026-10-19", "1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v; want true, nil", ok, err)
	}

	ok, err = store.SetNX(ctx, "reminder:15551234567:morning:2026-10-19", "1", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("second SetNX should not claim an existing marker")
	}

	if err := store.Delete(ctx, "reminder:15551234567:morning:2026-10-19"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = store.SetNX(ctx, "reminder:15551234567:morning:2026-10-19", "1", time.Hour)
	if !ok {
		t.Error("SetNX after Delete should claim the marker")
	}
}

func TestLocalStore_ExpiredMarkerCanBeReclaimed(t *testing.T) {
	store := NewLocalStore(time.Hour, zap.NewNop())
	defer store.Close()
	ctx := context.Background()

	if ok, _ := store.SetNX(ctx, "k", "1", time.Nanosecond); !ok {
		t.Fatal("expected first claim to succeed")
	}
	time.Sleep(time.Millisecond)

	if ok, _ := store.SetNX(ctx, "k", "1", time.Hour); !ok {
		t.Error("expired marker should be reclaimable")
	}
}

func TestLocalStore_CloseIsIdempotent(t *testing.T) {
	store := NewLocalStore(time.Hour, zap.NewNop())
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}
