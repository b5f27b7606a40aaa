package handlers

import (
	"net/http"
	"time"

	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/services"
	"github.com/pranaya890/LMS/internal/validation"
	"gorm.io/gorm"
)

// LoanHandler is the admin desk: direct issues, returns, the overdue board
// and fine settlement.
type LoanHandler struct {
	DB    *gorm.DB
	Loans *services.LoanService
}

func NewLoanHandler(db *gorm.DB, loans *services.LoanService) *LoanHandler {
	return &LoanHandler{DB: db, Loans: loans}
}

// Issues lists loans, open first.
func (h *LoanHandler) Issues(w http.ResponseWriter, r *http.Request) {
	var issues []models.Issue
	if err := h.DB.Preload("Reader").Preload("Book").
		Order("returned_date IS NOT NULL, due_date asc, id asc").
		Find(&issues).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_issues", nil)
		return
	}
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "issues", map[string]any{
			"Issues": issues,
			"Today":  services.Today(),
			"Flash":  middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": issues, "total": len(issues)})
}

type overdueRow struct {
	Issue       models.Issue `json:"issue"`
	DaysOverdue int          `json:"days_overdue"`
}

// Overdue lists open issues past due with the current days-overdue count.
func (h *LoanHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	today := services.Today()
	var issues []models.Issue
	if err := h.DB.Preload("Reader").Preload("Book").
		Where("returned_date IS NULL AND due_date < ?", today).
		Order("due_date asc").
		Find(&issues).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_overdue", nil)
		return
	}
	rows := make([]overdueRow, 0, len(issues))
	for _, issue := range issues {
		days := int(today.Sub(services.DateOf(issue.DueDate)).Hours() / 24)
		rows = append(rows, overdueRow{Issue: issue, DaysOverdue: days})
	}
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "overdue", map[string]any{
			"Rows":  rows,
			"Flash": middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "total": len(rows)})
}

// DirectIssue hands a book out without going through the request queue.
func (h *LoanHandler) DirectIssue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	readerID := formID(r, "reader_id")
	bookID := formID(r, "book_id")
	if readerID == 0 || bookID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var due *time.Time
	v := validation.Violations{}
	if d, ok := validation.Date("due_date", r.FormValue("due_date"), v); ok {
		due = &d
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	issue, err := h.Loans.DirectIssue(readerID, bookID, due)
	if err != nil {
		writeLoanError(w, r, err, "/admin/issues")
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Book issued")
		http.Redirect(w, r, "/admin/issues", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, issue)
}

// Return closes a loan and puts the copy back on the shelf.
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
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
	issue, err := h.Loans.Return(id)
	if err != nil {
		writeLoanError(w, r, err, "/admin/issues")
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Book returned")
		http.Redirect(w, r, "/admin/issues", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, issue)
}

// Fines lists fines, unpaid first.
func (h *LoanHandler) Fines(w http.ResponseWriter, r *http.Request) {
	var fines []models.Fine
	if err := h.DB.Preload("Issue").Preload("Issue.Reader").Preload("Issue.Book").
		Order("paid asc, calculated_date desc").
		Find(&fines).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_fines", nil)
		return
	}
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "fines", map[string]any{
			"Fines": fines,
			"Flash": middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": fines, "total": len(fines)})
}

// PayFine settles a fine at the desk.
func (h *LoanHandler) PayFine(w http.ResponseWriter, r *http.Request) {
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
	fine, err := h.Loans.PayFine(id)
	if err != nil {
		writeLoanError(w, r, err, "/admin/fines")
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Fine settled")
		http.Redirect(w, r, "/admin/fines", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, fine)
}
