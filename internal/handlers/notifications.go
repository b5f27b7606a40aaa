package handlers

import (
	"errors"
	"net/http"

	"github.com/pranaya890/LMS/internal/auth"
	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/services"
)

// NotificationHandler serves the signed-in reader's inbox.
type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(n *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: n}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	readerID := auth.ReaderID(r.Context())
	ns, err := h.Notifications.ListForReader(readerID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_notifications", nil)
		return
	}
	unread, _ := h.Notifications.UnreadCount(readerID)
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "notifications", map[string]any{
			"Notifications": ns,
			"Unread":        unread,
			"Flash":         middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": ns, "unread": unread})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
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
	err := h.Notifications.MarkRead(auth.ReaderID(r.Context()), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "mark_read_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		http.Redirect(w, r, "/notifications", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"read": id})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := h.Notifications.MarkAllRead(auth.ReaderID(r.Context())); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "mark_read_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		http.Redirect(w, r, "/notifications", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"read": "all"})
}
