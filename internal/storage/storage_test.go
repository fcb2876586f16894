package storage_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"bookworm/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")

	store, err := storage.New(context.Background(), dbPath, log)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	return store
}

func TestSetGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "token", "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok, err := store.Get(ctx, "token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to be present")
	}
	if value != "t1" {
		t.Fatalf("unexpected value: %q", value)
	}
}

func TestSetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "token", "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "token", "t2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := store.Get(ctx, "token")
	if err != nil || !ok {
		t.Fatalf("get after overwrite: value=%q ok=%v err=%v", value, ok, err)
	}
	if value != "t2" {
		t.Fatalf("unexpected value: %q", value)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected missing key")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "user", `{"_id":"u1"}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Delete(ctx, "user"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "user"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	if _, ok, err := store.Get(ctx, "user"); err != nil || ok {
		t.Fatalf("expected key to be gone, ok=%v err=%v", ok, err)
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set(context.Background(), "", "value"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
