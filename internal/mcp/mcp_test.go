package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/report"
	"github.com/bobmcallan/storetally/internal/storage/memory"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
)

func testLogger() *common.Logger {
	return common.NewSilentLogger()
}

func testService(t *testing.T) (*report.Service, *memory.Manager) {
	t.Helper()
	m := memory.NewManager()
	at := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	for _, r := range []models.StoreResult{
		models.NewStoreResult("a", decimal.RequireFromString("50"), models.SourcePage, models.CollectionFinal, at),
		models.NewStoreResult("b", decimal.RequireFromString("100"), models.SourceCSV, models.CollectionFinal, at),
		models.FailedStoreResult("c", "login failed", models.CollectionMidday, at),
	} {
		if err := m.ResultStorage().SaveResult(context.Background(), r); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	return report.NewService(m.ResultStorage(), m.StreakStorage(), []string{"a", "b", "c"}, time.UTC, testLogger()), m
}

func callRequest(name string, args map[string]interface{}) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	return result.Content[0].(mcpgo.TextContent).Text
}

func TestRankingToolHandler(t *testing.T) {
	svc, _ := testService(t)
	handler := RankingToolHandler(svc)

	result, err := handler(t.Context(), callRequest("sales_ranking", map[string]interface{}{"type": "final"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	var ranking struct {
		Entries []struct {
			Store   string `json:"store"`
			Amount  string `json:"amount"`
			Outcome string `json:"outcome"`
		} `json:"entries"`
		Total string `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &ranking); err != nil {
		t.Fatalf("failed to unmarshal ranking: %v", err)
	}
	if len(ranking.Entries) != 3 || ranking.Entries[0].Store != "b" || ranking.Entries[1].Store != "a" {
		t.Errorf("entries = %+v", ranking.Entries)
	}
	if ranking.Entries[2].Outcome != "zero" {
		t.Errorf("midday failure should count as no data for final, got %s", ranking.Entries[2].Outcome)
	}
	if ranking.Total != "150.00" {
		t.Errorf("total = %s", ranking.Total)
	}
}

func TestRankingToolHandler_BadType(t *testing.T) {
	svc, _ := testService(t)
	result, err := RankingToolHandler(svc)(t.Context(), callRequest("sales_ranking", map[string]interface{}{"type": "hourly"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for unknown type")
	}
}

func TestStoreResultToolHandler(t *testing.T) {
	_, m := testService(t)
	handler := StoreResultToolHandler(m.ResultStorage())

	result, err := handler(t.Context(), callRequest("store_result", map[string]interface{}{"store": "c"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{`"store":"c"`, `"outcome":"failed"`, `"reason":"login failed"`, `"amount":"0.00"`} {
		if !strings.Contains(text, want) {
			t.Errorf("result %s missing %s", text, want)
		}
	}

	missing, _ := handler(t.Context(), callRequest("store_result", map[string]interface{}{"store": "zz"}))
	if !missing.IsError || !strings.Contains(resultText(t, missing), "no result") {
		t.Errorf("expected not-found tool error, got %+v", missing)
	}

	noArg, _ := handler(t.Context(), callRequest("store_result", map[string]interface{}{}))
	if !noArg.IsError {
		t.Error("expected error when store is missing")
	}
}

func TestStreakToolHandler(t *testing.T) {
	svc, m := testService(t)
	_, err := m.StreakStorage().UpdateStreak(context.Background(), func(models.StreakState) (models.StreakState, bool) {
		return models.StreakState{CurrentTopStore: "b", StreakDays: 2, LastUpdate: "2024-01-02"}, true
	})
	if err != nil {
		t.Fatalf("UpdateStreak: %v", err)
	}

	result, err := StreakToolHandler(svc)(t.Context(), callRequest("streak", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"currentTopStore":"b","streakDays":2,"lastUpdate":"2024-01-02"}`
	if got := resultText(t, result); got != want {
		t.Errorf("streak = %s, want %s", got, want)
	}
}

func TestVersionToolHandler(t *testing.T) {
	result, err := VersionToolHandler()(t.Context(), mcpgo.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var info config.BuildInfo
	if err := json.Unmarshal([]byte(resultText(t, result)), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if info.Version != config.Version || info.GoVersion == "" {
		t.Errorf("unexpected build info: %+v", info)
	}
}

func postJSONRPC(t *testing.T, h http.Handler, body string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal JSON-RPC response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHandler_ServesStreamableHTTP(t *testing.T) {
	svc, m := testService(t)
	h := NewHandler(svc, m.ResultStorage(), testLogger())

	initResp := postJSONRPC(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	result, _ := initResp["result"].(map[string]interface{})
	info, _ := result["serverInfo"].(map[string]interface{})
	if info["name"] != "storetally" {
		t.Errorf("serverInfo = %v", info)
	}

	listResp := postJSONRPC(t, h, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	listed, _ := listResp["result"].(map[string]interface{})
	tools, _ := listed["tools"].([]interface{})
	names := map[string]bool{}
	for _, tool := range tools {
		if m, ok := tool.(map[string]interface{}); ok {
			names[m["name"].(string)] = true
		}
	}
	for _, want := range ToolNames {
		if !names[want] {
			t.Errorf("tools/list missing %s (got %v)", want, names)
		}
	}
}
