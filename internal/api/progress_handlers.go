package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/ccnews-ingest/internal/progress"
)

// ProgressSource reports run progress; progress.Tracker implements it.
type ProgressSource interface {
	Snapshot() []progress.MonthStatus
	Month(month time.Month) (progress.MonthStatus, bool)
}

type progressHandler struct {
	source ProgressSource
	logger *zap.Logger
}

// list handles GET /progress and returns {"months": [...]}.
func (h *progressHandler) list(w http.ResponseWriter, _ *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "progress unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": h.source.Snapshot()})
}

// get handles GET /progress/{month} where month is 1-12.
func (h *progressHandler) get(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusServiceUnavailable, "progress unavailable")
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || n < 1 || n > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	m, ok := h.source.Month(time.Month(n))
	if !ok {
		writeError(w, http.StatusNotFound, "month not scheduled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": m})
}
