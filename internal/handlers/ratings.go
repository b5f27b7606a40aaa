package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pranaya890/LMS/internal/auth"
	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/services"
)

// RatingHandler accepts reader ratings and returns the recomputed combined
// score.
type RatingHandler struct {
	Ratings *services.RatingService
}

func NewRatingHandler(ratings *services.RatingService) *RatingHandler {
	return &RatingHandler{Ratings: ratings}
}

func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	bookID := formID(r, "book_id")
	if bookID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	value, err := strconv.ParseFloat(r.FormValue("rating"), 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_rating", nil)
		return
	}
	combined, readerAvg, err := h.Ratings.Submit(auth.ReaderID(r.Context()), bookID, value)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOutOfRange):
			httpx.JSONError(w, http.StatusBadRequest, "rating_out_of_range", nil)
		case errors.Is(err, services.ErrNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "rating_failed", nil)
		}
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Thanks for rating")
		http.Redirect(w, r, "/books/details?id="+strconv.FormatUint(uint64(bookID), 10), statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"combined_rating": combined,
		"reader_average":  readerAvg,
	})
}
