package mcp

import (
	"net/http"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
	"github.com/bobmcallan/storetally/internal/interfaces"
	"github.com/bobmcallan/storetally/internal/report"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler registers the sales tools and serves them statelessly.
func NewHandler(service *report.Service, results interfaces.ResultStorage, logger *common.Logger) *Handler {
	mcpSrv := NewServer(service, results)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Strs("tools", ToolNames).
		Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
	}
}

// NewServer builds the MCP server with every tool registered.
func NewServer(service *report.Service, results interfaces.ResultStorage) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer(
		"storetally",
		config.Version,
		mcpserver.WithToolCapabilities(true),
	)
	RegisterTools(mcpSrv, service, results)
	return mcpSrv
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
