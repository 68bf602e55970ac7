package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/shopspring/decimal"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(common.NewSilentLogger(), dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, dir
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Downtown":        "downtown",
		"Main Street #2":  "main-street-2",
		"  Mall  ":        "mall",
		"../../etc":       "etc",
		"Store/With\\Sep": "store-with-sep",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResultStorage_OneFilePerStore(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)

	in := models.NewStoreResult("Main Street", decimal.RequireFromString("7404.52"), models.SourcePage, models.CollectionFinal, at)
	if err := m.ResultStorage().SaveResult(ctx, in); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "results", FileName("Main Street")))
	if err != nil {
		t.Fatalf("expected result file: %v", err)
	}
	if !strings.Contains(string(data), `"amount": "7404.52"`) {
		t.Errorf("expected fixed amount in file, got %s", data)
	}

	out, err := m.ResultStorage().GetResult(ctx, "Main Street")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if !out.Amount.Equal(in.Amount) || out.Store != "Main Street" || !out.CollectedAt.Equal(at) {
		t.Errorf("round trip drifted: %+v", out)
	}
}

func TestFileName_DistinctStoresDoNotCollide(t *testing.T) {
	pairs := [][2]string{
		{"Main St", "main-st"},
		{"Café", "Caf"},
		{"Mall", "mall"},
	}
	for _, p := range pairs {
		if FileName(p[0]) == FileName(p[1]) {
			t.Errorf("FileName(%q) == FileName(%q) = %s", p[0], p[1], FileName(p[0]))
		}
	}
	if !strings.HasPrefix(FileName("Main Street"), "main-street-") {
		t.Errorf("expected readable prefix, got %s", FileName("Main Street"))
	}
	if !strings.HasPrefix(FileName("東京"), "store-") {
		t.Errorf("expected fallback slug, got %s", FileName("東京"))
	}
}

func TestResultStorage_SimilarNamesKeepOwnRecords(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	rs := m.ResultStorage()

	for store, amount := range map[string]int64{"Main St": 100, "main-st": 5, "Café": 1, "Caf": 2} {
		if err := rs.SaveResult(ctx, models.NewStoreResult(store, decimal.NewFromInt(amount), models.SourcePage, models.CollectionFinal, at)); err != nil {
			t.Fatalf("SaveResult(%s) failed: %v", store, err)
		}
	}

	for store, want := range map[string]int64{"Main St": 100, "main-st": 5, "Café": 1, "Caf": 2} {
		got, err := rs.GetResult(ctx, store)
		if err != nil {
			t.Fatalf("GetResult(%s) failed: %v", store, err)
		}
		if got.Store != store || !got.Amount.Equal(decimal.NewFromInt(want)) {
			t.Errorf("GetResult(%s) = %s %s", store, got.Store, got.Amount)
		}
	}

	all, err := rs.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 results, got %d", len(all))
	}
}

func TestResultStorage_GetRejectsForeignRecord(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()

	other := models.NewStoreResult("Other", decimal.NewFromInt(9), models.SourcePage, models.CollectionFinal, time.Now())
	if err := writeJSON(filepath.Join(dir, "results", FileName("Main St")), other); err != nil {
		t.Fatal(err)
	}

	if _, err := m.ResultStorage().GetResult(ctx, "Main St"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a file holding another store, got %v", err)
	}
}

func TestResultStorage_MissingAndList(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.ResultStorage().GetResult(ctx, "nowhere"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	m.ResultStorage().SaveResult(ctx, models.NewStoreResult("b", decimal.NewFromInt(2), models.SourcePage, models.CollectionFinal, time.Now()))
	m.ResultStorage().SaveResult(ctx, models.NewStoreResult("a", decimal.NewFromInt(1), models.SourcePage, models.CollectionFinal, time.Now()))

	all, err := m.ResultStorage().ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(all) != 2 || all[0].Store != "a" || all[1].Store != "b" {
		t.Errorf("expected [a b], got %+v", all)
	}
}

func TestResultStorage_RejectsEmptyStore(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.ResultStorage().SaveResult(context.Background(), models.StoreResult{Store: "  "})
	if err == nil {
		t.Error("expected error for empty store name")
	}
}

func TestStreakStorage_PersistsAndReleasesLock(t *testing.T) {
	m, dir := newTestManager(t)
	ctx := context.Background()

	state, err := m.StreakStorage().GetStreak(ctx)
	if err != nil || state != (models.StreakState{}) {
		t.Fatalf("expected zero state, got %+v %v", state, err)
	}

	next, err := m.StreakStorage().UpdateStreak(ctx, func(s models.StreakState) (models.StreakState, bool) {
		return models.StreakState{CurrentTopStore: "b", StreakDays: 4, LastUpdate: "2024-01-02"}, true
	})
	if err != nil {
		t.Fatalf("UpdateStreak failed: %v", err)
	}
	if next.StreakDays != 4 {
		t.Errorf("expected 4 days, got %d", next.StreakDays)
	}

	data, err := os.ReadFile(filepath.Join(dir, "streak.json"))
	if err != nil {
		t.Fatalf("expected streak.json: %v", err)
	}
	for _, want := range []string{`"currentTopStore": "b"`, `"streakDays": 4`, `"lastUpdate": "2024-01-02"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "streak.lock")); !os.IsNotExist(err) {
		t.Error("expected lock file to be removed")
	}
}

func TestStreakStorage_WaitsForForeignLock(t *testing.T) {
	m, dir := newTestManager(t)

	old := LockTimeout
	LockTimeout = 150 * time.Millisecond
	defer func() { LockTimeout = old }()

	if err := os.WriteFile(filepath.Join(dir, "streak.lock"), []byte("999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := m.StreakStorage().UpdateStreak(context.Background(), func(s models.StreakState) (models.StreakState, bool) {
		t.Error("fn must not run without the lock")
		return s, true
	})
	if err == nil {
		t.Fatal("expected timeout while another writer holds the lock")
	}
}

func TestStreakStorage_RemovesStaleLock(t *testing.T) {
	m, dir := newTestManager(t)

	old := LockTimeout
	LockTimeout = 150 * time.Millisecond
	defer func() { LockTimeout = old }()

	lock := filepath.Join(dir, "streak.lock")
	if err := os.WriteFile(lock, []byte("999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	hourAgo := time.Now().Add(-time.Hour)
	if err := os.Chtimes(lock, hourAgo, hourAgo); err != nil {
		t.Fatal(err)
	}

	next, err := m.StreakStorage().UpdateStreak(context.Background(), func(s models.StreakState) (models.StreakState, bool) {
		return models.StreakState{CurrentTopStore: "a", StreakDays: 1, LastUpdate: "2024-01-02"}, true
	})
	if err != nil {
		t.Fatalf("UpdateStreak failed with a stale lock: %v", err)
	}
	if next.StreakDays != 1 {
		t.Errorf("expected 1 day, got %d", next.StreakDays)
	}
	if _, err := os.Stat(lock); !os.IsNotExist(err) {
		t.Error("expected lock file to be removed after the update")
	}
}

func TestKVStorage(t *testing.T) {
	m, _ := newTestManager(t)
	kv := m.KeyValueStorage()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "last_run_id"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "last_run_id", "run-1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := kv.Get(ctx, "last_run_id"); v != "run-1" {
		t.Errorf("expected run-1, got %s", v)
	}
	if err := kv.Delete(ctx, "last_run_id"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := kv.Delete(ctx, "last_run_id"); err != nil {
		t.Errorf("second delete should not error: %v", err)
	}
	all, _ := kv.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty kv, got %v", all)
	}
}
