package mcp

import (
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/report"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolNames lists the registered tools.
var ToolNames = []string{"get_version", "sales_ranking", "store_result", "streak"}

// RegisterTools adds the version, ranking, store result and streak tools.
func RegisterTools(s *server.MCPServer, service *report.Service, results interfaces.ResultStorage) {
	s.AddTool(VersionTool(), VersionToolHandler())
	s.AddTool(RankingTool(), RankingToolHandler(service))
	s.AddTool(StoreResultTool(), StoreResultToolHandler(results))
	s.AddTool(StreakTool(), StreakToolHandler(service))
}

func RankingTool() mcp.Tool {
	return mcp.NewTool("sales_ranking",
		mcp.WithDescription("Rank the configured stores by their latest collected net sales, highest first, with the combined total."),
		mcp.WithString("type",
			mcp.Description("Collection type to rank: 'midday' or 'final'. Ranks the latest result of any type if omitted."),
			mcp.Enum("midday", "final"),
		),
	)
}

func StoreResultTool() mcp.Tool {
	return mcp.NewTool("store_result",
		mcp.WithDescription("Get the latest collected net sales figure for one store, including where it came from and why it failed if it did."),
		mcp.WithString("store", mcp.Required(), mcp.Description("Store name as configured")),
	)
}

func StreakTool() mcp.Tool {
	return mcp.NewTool("streak",
		mcp.WithDescription("Get the store currently ranked first and for how many consecutive days."),
	)
}
