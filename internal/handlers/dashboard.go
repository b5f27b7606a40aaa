package handlers

import (
	"net/http"

	"github.com/pranaya890/LMS/internal/auth"
	"github.com/pranaya890/LMS/internal/httpx"
	applog "github.com/pranaya890/LMS/internal/log"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DashboardHandler renders the reader and admin landing pages. Loading a
// dashboard is also what advances time-driven state: fines are accrued and
// the notification sweeps run. Both are idempotent so double loads are
// harmless.
type DashboardHandler struct {
	DB            *gorm.DB
	Loans         *services.LoanService
	Notifications *services.NotificationService
}

func NewDashboardHandler(db *gorm.DB, loans *services.LoanService, n *services.NotificationService) *DashboardHandler {
	return &DashboardHandler{DB: db, Loans: loans, Notifications: n}
}

// sweep runs the time-driven maintenance. Failures are logged, not surfaced:
// the dashboard still renders from whatever state committed.
func (h *DashboardHandler) sweep() {
	today := services.Today()
	if _, err := h.Loans.AccrueFines(today); err != nil {
		applog.Warn("fine accrual failed", zap.Error(err))
	}
	if _, err := h.Notifications.SweepDueSoon(today); err != nil {
		applog.Warn("due-soon sweep failed", zap.Error(err))
	}
	if _, err := h.Notifications.SweepOverdue(today); err != nil {
		applog.Warn("overdue sweep failed", zap.Error(err))
	}
}

// Reader shows the signed-in reader their open loans, pending requests,
// unpaid fines and unread notification count.
func (h *DashboardHandler) Reader(w http.ResponseWriter, r *http.Request) {
	h.sweep()
	readerID := auth.ReaderID(r.Context())

	var reader models.Reader
	if err := h.DB.First(&reader, readerID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_dashboard", nil)
		return
	}
	var issues []models.Issue
	if err := h.DB.Preload("Book").
		Where("reader_id = ? AND returned_date IS NULL", readerID).
		Order("due_date asc").
		Find(&issues).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_dashboard", nil)
		return
	}
	var requests []models.IssueRequest
	_ = h.DB.Preload("Book").
		Where("reader_id = ? AND approved = ? AND rejected = ?", readerID, false, false).
		Order("request_date asc").
		Find(&requests).Error
	var fines []models.Fine
	_ = h.DB.Preload("Issue").Preload("Issue.Book").
		Joins("JOIN issues ON issues.id = fines.issue_id").
		Where("issues.reader_id = ? AND fines.paid = ?", readerID, false).
		Find(&fines).Error
	unread, _ := h.Notifications.UnreadCount(readerID)

	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "dashboard", map[string]any{
			"Reader":   reader,
			"Issues":   issues,
			"Requests": requests,
			"Fines":    fines,
			"Unread":   unread,
			"Today":    services.Today(),
			"Flash":    middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"reader":   reader,
		"issues":   issues,
		"requests": requests,
		"fines":    fines,
		"unread":   unread,
	})
}

// Admin shows library-wide totals and the moderation queues.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.sweep()

	var totals struct {
		Books    int64 `json:"books"`
		Readers  int64 `json:"readers"`
		Open     int64 `json:"open_issues"`
		Overdue  int64 `json:"overdue_issues"`
		Pending  int64 `json:"pending_requests"`
		Unpaid   int64 `json:"unpaid_fines"`
		OutCount int64 `json:"copies_out"`
	}
	today := services.Today()
	h.DB.Model(&models.Book{}).Count(&totals.Books)
	h.DB.Model(&models.Reader{}).Count(&totals.Readers)
	h.DB.Model(&models.Issue{}).Where("returned_date IS NULL").Count(&totals.Open)
	h.DB.Model(&models.Issue{}).Where("returned_date IS NULL AND due_date < ?", today).Count(&totals.Overdue)
	h.DB.Model(&models.IssueRequest{}).Where("approved = ? AND rejected = ?", false, false).Count(&totals.Pending)
	h.DB.Model(&models.Fine{}).Where("paid = ?", false).Count(&totals.Unpaid)
	totals.OutCount = totals.Open

	var recent []models.Issue
	_ = h.DB.Preload("Reader").Preload("Book").
		Order("issued_date desc, id desc").
		Limit(5).
		Find(&recent).Error

	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "admin_dashboard", map[string]any{
			"Totals": totals,
			"Recent": recent,
			"Flash":  middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"totals": totals, "recent_issues": recent})
}
