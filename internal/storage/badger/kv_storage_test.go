package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
)

func setupTestDB(t *testing.T) (*BadgerDB, func()) {
	t.Helper()

	db, err := NewBadgerDB(common.NewSilentLogger(), &config.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db, func() { db.Close() }
}

func TestNewBadgerDB_InMemory(t *testing.T) {
	db, err := NewBadgerDB(common.NewSilentLogger(), &config.BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open in-memory DB: %v", err)
	}
	defer db.Close()

	kv := NewKVStorage(db, common.NewSilentLogger())
	if err := kv.Set(context.Background(), "last_run_id", "run-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := kv.Get(context.Background(), "last_run_id"); v != "run-1" {
		t.Errorf("expected run-1, got %q", v)
	}
}

func TestNewBadgerDB_EmptyPath(t *testing.T) {
	if _, err := NewBadgerDB(common.NewSilentLogger(), &config.BadgerConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestBadgerDB_CloseTwice(t *testing.T) {
	db, _ := setupTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestKVStorage_SetGetOverwrite(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	if err := kv.Set(ctx, "last_upload:down-town", "s3://bucket/a.csv"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, "last_upload:down-town", "s3://bucket/b.csv"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "last_upload:down-town")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "s3://bucket/b.csv" {
		t.Errorf("expected overwritten value, got %s", val)
	}
}

func TestKVStorage_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	_, err := kv.Get(context.Background(), "missing")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStorage_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	kv.Set(ctx, "last_run_id", "run-1")
	if err := kv.Delete(ctx, "last_run_id"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, "last_run_id"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := kv.Delete(ctx, "last_run_id"); err != nil {
		t.Errorf("deleting a missing key should succeed, got %v", err)
	}
}

func TestKVStorage_GetAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	all, err := kv.GetAll(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty map, got %v (%v)", all, err)
	}

	kv.Set(ctx, "last_run_id", "run-1")
	kv.Set(ctx, "last_run_at", "2024-01-02T21:00:00Z")

	all, err = kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all["last_run_id"] != "run-1" {
		t.Errorf("unexpected entries: %v", all)
	}
}
