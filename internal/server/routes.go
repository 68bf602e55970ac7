package server

import (
	"net/http"

	"github.com/bobmcallan/storetally/internal/handlers"
)

// route binds a path to a handler.
type route struct {
	pattern string
	handler http.Handler
}

func (s *Server) routes() []route {
	a := s.app
	rs := []route{
		{"/api/health", a.HealthHandler},
		{"/api/version", a.VersionHandler},
		{"/api/ranking", http.HandlerFunc(a.ReportHandler.HandleRanking)},
		{"/api/streak", http.HandlerFunc(a.ReportHandler.HandleStreak)},
	}
	if a.MCPHandler != nil {
		rs = append(rs, route{"/mcp", a.MCPHandler})
	}
	return rs
}

// setupRoutes builds the mux. Anything unmatched gets a JSON 404.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	for _, r := range s.routes() {
		mux.Handle(r.pattern, r.handler)
		s.logger.Debug().Str("pattern", r.pattern).Msg("route registered")
	}
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
}
