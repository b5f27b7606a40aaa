package handlers

import (
	"errors"
	"net/http"

	"github.com/pranaya890/LMS/internal/auth"
	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/services"
	"gorm.io/gorm"
)

// RequestHandler covers the reader-facing request queue and its admin
// moderation side.
type RequestHandler struct {
	DB    *gorm.DB
	Loans *services.LoanService
}

func NewRequestHandler(db *gorm.DB, loans *services.LoanService) *RequestHandler {
	return &RequestHandler{DB: db, Loans: loans}
}

// Submit lets the signed-in reader ask for a book.
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	readerID := auth.ReaderID(r.Context())
	bookID := formID(r, "book_id")
	if bookID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	req, err := h.Loans.SubmitRequest(readerID, bookID)
	if err != nil {
		writeLoanError(w, r, err, "/books")
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Request submitted")
		http.Redirect(w, r, "/dashboard", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

// Pending lists the open requests for moderation.
func (h *RequestHandler) Pending(w http.ResponseWriter, r *http.Request) {
	var requests []models.IssueRequest
	if err := h.DB.Preload("Reader").Preload("Book").
		Where("approved = ? AND rejected = ?", false, false).
		Order("request_date asc, id asc").
		Find(&requests).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_requests", nil)
		return
	}
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "requests", map[string]any{
			"Requests": requests,
			"Flash":    middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": requests, "total": len(requests)})
}

// Approve turns an open request into an issue. When a loan condition fails
// the request ends up rejected and the reason comes back as an error.
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	issue, err := h.Loans.Approve(id)
	if err != nil {
		writeLoanError(w, r, err, "/admin/requests")
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Request approved")
		http.Redirect(w, r, "/admin/requests", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, issue)
}

// Reject declines an open request.
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	req, err := h.Loans.Reject(id)
	if err != nil {
		writeLoanError(w, r, err, "/admin/requests")
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Request rejected")
		http.Redirect(w, r, "/admin/requests", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

// writeLoanError maps workflow sentinels onto HTTP responses. HTML clients
// get a flash + redirect back; JSON clients get the error code.
func writeLoanError(w http.ResponseWriter, r *http.Request, err error, backTo string) {
	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, services.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrLimitExceeded):
		status, code = http.StatusConflict, "issue_limit_exceeded"
	case errors.Is(err, services.ErrDuplicateIssue):
		status, code = http.StatusConflict, "book_already_issued"
	case errors.Is(err, services.ErrDuplicatePendingRequest):
		status, code = http.StatusConflict, "request_already_pending"
	case errors.Is(err, services.ErrOutOfStock):
		status, code = http.StatusConflict, "out_of_stock"
	case errors.Is(err, services.ErrInvalidDueDate):
		status, code = http.StatusBadRequest, "invalid_due_date"
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, code)
		http.Redirect(w, r, backTo, statusSeeOther)
		return
	}
	httpx.JSONError(w, status, code, nil)
}
