package handlers

import (
	"net/http"

	"github.com/bobmcallan/storetally/internal/cache"
	"github.com/bobmcallan/storetally/internal/common"
	"github.com/bobmcallan/storetally/internal/models"
	"github.com/bobmcallan/storetally/internal/report"
)

// ReportHandler serves the latest ranking and the streak.
type ReportHandler struct {
	logger   *common.Logger
	service  *report.Service
	rankings *cache.Cache[report.Ranking]
}

// NewReportHandler creates a report handler over the report service.
// rankings may be nil to disable caching.
func NewReportHandler(logger *common.Logger, service *report.Service, rankings *cache.Cache[report.Ranking]) *ReportHandler {
	return &ReportHandler{logger: logger, service: service, rankings: rankings}
}

func (h *ReportHandler) ranking(r *http.Request, typ models.CollectionType) (report.Ranking, error) {
	key := string(typ)
	if h.rankings != nil {
		if cached, ok := h.rankings.Get(key); ok {
			return cached, nil
		}
	}
	ranking, err := h.ranking(r, typ)
	if err != nil {
		return report.Ranking{}, err
	}
	if h.rankings != nil {
		h.rankings.Set(key, ranking)
	}
	return ranking, nil
}

// HandleRanking handles GET /api/ranking?type=midday|final.
func (h *ReportHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var typ models.CollectionType
	if q := r.URL.Query().Get("type"); q != "" {
		parsed, err := models.ParseCollectionType(q)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		typ = parsed
	}

	ranking, err := h.ranking(r, typ)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build ranking")
		WriteError(w, http.StatusInternalServerError, "failed to load results")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"type":    typ,
		"ranking": ranking,
	})
}

// HandleStreak handles GET /api/streak.
func (h *ReportHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	streak, err := h.service.Streak(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load streak")
		WriteError(w, http.StatusInternalServerError, "failed to load streak")
		return
	}

	WriteJSON(w, http.StatusOK, streak)
}
