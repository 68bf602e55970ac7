package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/storetally/internal/cache"
	"github.com/bobmcallan/storetally/internal/collector"
	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/report"
	"github.com/bobmcallan/storetally/internal/storage/memory"
	"github.com/shopspring/decimal"
)

func TestHealthHandler_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}
}

func TestHealthHandler_RejectsNonGET(t *testing.T) {
	handler := NewHealthHandler(nil, nil)

	req := httptest.NewRequest("POST", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestHealthHandler_ReportsLastRun(t *testing.T) {
	m := memory.NewManager()
	kv := m.KeyValueStorage()
	handler := NewHealthHandler(common.NewSilentLogger(), kv)

	get := func() map[string]string {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		return body
	}

	if body := get(); body["last_run_id"] != "" {
		t.Errorf("expected no last run before any collection, got %v", body)
	}

	ctx := context.Background()
	kv.Set(ctx, collector.KeyLastRunID, "run-1")
	kv.Set(ctx, collector.KeyLastRunAt, "2024-01-02T21:00:00Z")

	body := get()
	if body["last_run_id"] != "run-1" || body["last_run_at"] != "2024-01-02T21:00:00Z" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestVersionHandler_ReturnsJSON(t *testing.T) {
	handler := NewVersionHandler(nil)

	req := httptest.NewRequest("GET", "/api/version", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	for _, field := range []string{"version", "build", "git_commit"} {
		if _, ok := body[field]; !ok {
			t.Errorf("expected %s field in response", field)
		}
	}
}

func TestRequireMethod_AllowsHEADForGET(t *testing.T) {
	req := httptest.NewRequest("HEAD", "/api/health", nil)
	w := httptest.NewRecorder()
	if !RequireMethod(w, req, "GET") {
		t.Error("expected HEAD to be accepted for GET routes")
	}
}

func newReportHandler(t *testing.T) (*ReportHandler, *memory.Manager) {
	t.Helper()
	m := memory.NewManager()
	logger := common.NewSilentLogger()
	svc := report.NewService(m.ResultStorage(), m.StreakStorage(), []string{"a", "b", "c"}, time.UTC, logger)
	return NewReportHandler(logger, svc, cache.New[report.Ranking](time.Minute, 4)), m
}

func saveResult(t *testing.T, m *memory.Manager, store, amount string, typ models.CollectionType) {
	t.Helper()
	at := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	r := models.NewStoreResult(store, decimal.RequireFromString(amount), models.SourcePage, typ, at)
	if err := m.ResultStorage().SaveResult(context.Background(), r); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
}

type rankingResponse struct {
	Type    string `json:"type"`
	Ranking struct {
		Entries []struct {
			Rank      int    `json:"rank"`
			Store     string `json:"store"`
			Amount    string `json:"amount"`
			Formatted string `json:"formatted"`
			Outcome   string `json:"outcome"`
		} `json:"entries"`
		Total          string `json:"total"`
		FormattedTotal string `json:"formattedTotal"`
	} `json:"ranking"`
}

func TestReportHandler_Ranking(t *testing.T) {
	h, m := newReportHandler(t)
	saveResult(t, m, "a", "50", models.CollectionFinal)
	saveResult(t, m, "b", "100", models.CollectionFinal)

	req := httptest.NewRequest("GET", "/api/ranking?type=final", nil)
	w := httptest.NewRecorder()
	h.HandleRanking(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body rankingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Type != "final" {
		t.Errorf("type = %q", body.Type)
	}
	if len(body.Ranking.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(body.Ranking.Entries))
	}
	first := body.Ranking.Entries[0]
	if first.Store != "b" || first.Rank != 1 || first.Amount != "100.00" || first.Formatted != "$100.00" {
		t.Errorf("first entry = %+v", first)
	}
	if last := body.Ranking.Entries[2]; last.Store != "c" || last.Outcome != "zero" {
		t.Errorf("last entry = %+v", last)
	}
	if body.Ranking.Total != "150.00" || body.Ranking.FormattedTotal != "$150.00" {
		t.Errorf("total = %q / %q", body.Ranking.Total, body.Ranking.FormattedTotal)
	}
}

func TestReportHandler_RankingRejectsUnknownType(t *testing.T) {
	h, _ := newReportHandler(t)

	req := httptest.NewRequest("GET", "/api/ranking?type=weekly", nil)
	w := httptest.NewRecorder()
	h.HandleRanking(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestReportHandler_Streak(t *testing.T) {
	h, m := newReportHandler(t)
	_, err := m.StreakStorage().UpdateStreak(context.Background(), func(models.StreakState) (models.StreakState, bool) {
		return models.StreakState{CurrentTopStore: "b", StreakDays: 4, LastUpdate: "2024-01-02"}, true
	})
	if err != nil {
		t.Fatalf("UpdateStreak: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/streak", nil)
	w := httptest.NewRecorder()
	h.HandleStreak(w, req)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["currentTopStore"] != "b" || body["streakDays"] != float64(4) || body["lastUpdate"] != "2024-01-02" {
		t.Errorf("streak = %v", body)
	}

	post := httptest.NewRecorder()
	h.HandleStreak(post, httptest.NewRequest("POST", "/api/streak", nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", post.Code)
	}
}

func TestReportHandler_RankingIsCachedUntilInvalidated(t *testing.T) {
	m := memory.NewManager()
	logger := common.NewSilentLogger()
	svc := report.NewService(m.ResultStorage(), m.StreakStorage(), []string{"a"}, time.UTC, logger)
	rankings := cache.New[report.Ranking](time.Minute, 4)
	h := NewReportHandler(logger, svc, rankings)

	get := func() rankingResponse {
		w := httptest.NewRecorder()
		h.HandleRanking(w, httptest.NewRequest("GET", "/api/ranking", nil))
		var body rankingResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		return body
	}

	if got := get().Ranking.Total; got != "0.00" {
		t.Fatalf("initial total = %s", got)
	}

	saveResult(t, m, "a", "12.50", models.CollectionFinal)
	if got := get().Ranking.Total; got != "0.00" {
		t.Errorf("expected cached total 0.00, got %s", got)
	}

	rankings.Invalidate()
	if got := get().Ranking.Total; got != "12.50" {
		t.Errorf("expected fresh total 12.50, got %s", got)
	}
}
