package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/report"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func jsonResult(v interface{}) *mcp.CallToolResult {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to marshal result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(out))},
	}
}

func RankingToolHandler(service *report.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var typ models.CollectionType
		if s := r.GetString("type", ""); s != "" {
			parsed, err := models.ParseCollectionType(s)
			if err != nil {
				return errorResult(err.Error()), nil
			}
			typ = parsed
		}

		ranking, err := service.RankingOfType(ctx, typ)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to load ranking: %v", err)), nil
		}
		return jsonResult(ranking), nil
	}
}

func StoreResultToolHandler(results interfaces.ResultStorage) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store, err := r.RequireString("store")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := results.GetResult(ctx, store)
		if errors.Is(err, interfaces.ErrNotFound) {
			return errorResult(fmt.Sprintf("no result collected for store %q", store)), nil
		}
		if err != nil {
			return errorResult(fmt.Sprintf("failed to load result: %v", err)), nil
		}
		return jsonResult(result), nil
	}
}

func StreakToolHandler(service *report.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		streak, err := service.Streak(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to load streak: %v", err)), nil
		}
		return jsonResult(streak), nil
	}
}
