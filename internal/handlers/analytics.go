package handlers

import (
	"net/http"
	"strconv"

	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/services"
)

// AnalyticsHandler exposes per-book issuance series and the popular shelf
// as JSON for the admin charts.
type AnalyticsHandler struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsHandler(a *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: a}
}

// Series returns the daily issuance counts for one book. window defaults to
// 30 days, capped at 365.
func (h *AnalyticsHandler) Series(w http.ResponseWriter, r *http.Request) {
	bookID := formID(r, "book_id")
	if bookID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	window := 30
	if v := r.URL.Query().Get("window"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			window = n
		}
	}
	series, err := h.Analytics.Series(bookID, window, services.Today())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_series", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, series)
}

// Popular returns the random highly rated picks.
func (h *AnalyticsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit := 6
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	books, err := h.Analytics.Popular(limit, formID(r, "exclude"))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_popular", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": books})
}
