package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/storetally/internal/collector"
	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/interfaces"
)

// HealthHandler reports liveness and the most recent collection run.
type HealthHandler struct {
	logger *common.Logger
	kv     interfaces.KeyValueStorage
}

// NewHealthHandler creates a health handler. kv may be nil, in which case
// only liveness is reported.
func NewHealthHandler(logger *common.Logger, kv interfaces.KeyValueStorage) *HealthHandler {
	return &HealthHandler{logger: logger, kv: kv}
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	body := map[string]string{"status": "ok"}
	if h.kv != nil {
		for field, key := range map[string]string{
			"last_run_id": collector.KeyLastRunID,
			"last_run_at": collector.KeyLastRunAt,
		} {
			v, err := h.kv.Get(r.Context(), key)
			switch {
			case err == nil:
				body[field] = v
			case errors.Is(err, interfaces.ErrNotFound):
			default:
				if h.logger != nil {
					h.logger.Warn().Err(err).Str("key", key).Msg("Health check could not read storage")
				}
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  "storage unavailable",
				})
				return
			}
		}
	}

	WriteJSON(w, http.StatusOK, body)
}
