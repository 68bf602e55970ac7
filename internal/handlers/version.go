package handlers

import (
	"net/http"

	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/config"
)

// VersionHandler serves the build info of the running binary.
type VersionHandler struct {
	logger *common.Logger
	info   config.BuildInfo
}

func NewVersionHandler(logger *common.Logger) *VersionHandler {
	return &VersionHandler{logger: logger, info: config.CurrentBuild()}
}

// ServeHTTP handles GET /api/version.
func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, h.info)
}
