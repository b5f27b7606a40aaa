package handlers

import (
	"net/http"
	"strings"

	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ReaderHandler is the admin-side membership management.
type ReaderHandler struct{ DB *gorm.DB }

func NewReaderHandler(db *gorm.DB) *ReaderHandler { return &ReaderHandler{DB: db} }

func (h *ReaderHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	dbq := h.DB.Order("name asc")
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(reader_id) LIKE ?", like, like)
	}
	var readers []models.Reader
	if err := dbq.Find(&readers).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_readers", nil)
		return
	}
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "readers", map[string]any{
			"Readers": readers,
			"Query":   query,
			"Flash":   middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": readers, "total": len(readers)})
}

// Details shows one reader with their loan history and outstanding fines.
func (h *ReaderHandler) Details(w http.ResponseWriter, r *http.Request) {
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var reader models.Reader
	if err := h.DB.First(&reader, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var issues []models.Issue
	if err := h.DB.Preload("Book").
		Where("reader_id = ?", id).
		Order("issued_date desc, id desc").
		Find(&issues).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_history", nil)
		return
	}
	var fines []models.Fine
	_ = h.DB.Preload("Issue").Preload("Issue.Book").
		Joins("JOIN issues ON issues.id = fines.issue_id").
		Where("issues.reader_id = ? AND fines.paid = ?", id, false).
		Find(&fines).Error
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "reader_details", map[string]any{
			"Reader": reader,
			"Issues": issues,
			"Fines":  fines,
			"Flash":  middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reader": reader, "issues": issues, "fines": fines})
}

// Create registers a reader on behalf of the library desk.
func (h *ReaderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	cardNumber := strings.TrimSpace(r.FormValue("reader_id"))
	name := strings.TrimSpace(r.FormValue("name"))
	phone := strings.TrimSpace(r.FormValue("phone_number"))
	address := strings.TrimSpace(r.FormValue("address"))
	pass := r.FormValue("password")

	v := validation.Violations{}
	validation.Required("reader_id", cardNumber, v)
	validation.Required("name", name, v)
	validation.Required("phone_number", phone, v)
	validation.Required("address", address, v)
	validation.Required("password", pass, v)
	validation.MaxLen("reader_id", cardNumber, 20, v)
	validation.MaxLen("phone_number", phone, 15, v)
	dob, ok := validation.Date("date_of_birth", r.FormValue("date_of_birth"), v)
	if !ok && v["date_of_birth"] == "" {
		v["date_of_birth"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	reader := models.Reader{
		ReaderID:      cardNumber,
		Name:          name,
		DateOfBirth:   dob,
		PhoneNumber:   phone,
		Address:       address,
		Password:      string(hash),
		IsStaffMember: r.FormValue("is_staff_member") == "on" || r.FormValue("is_staff_member") == "true",
	}
	if err := h.DB.Create(&reader).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "reader_create_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Reader registered")
		http.Redirect(w, r, "/admin/readers", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, reader)
}

// Update edits membership fields. The card number is immutable.
func (h *ReaderHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var reader models.Reader
	if err := h.DB.First(&reader, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if v := strings.TrimSpace(r.FormValue("name")); v != "" {
		reader.Name = v
	}
	if v := strings.TrimSpace(r.FormValue("phone_number")); v != "" {
		reader.PhoneNumber = v
	}
	if v := strings.TrimSpace(r.FormValue("address")); v != "" {
		reader.Address = v
	}
	if v := r.FormValue("is_staff_member"); v != "" {
		reader.IsStaffMember = v == "on" || v == "true"
	}
	if pass := r.FormValue("password"); pass != "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
		reader.Password = string(hash)
	}
	if err := h.DB.Save(&reader).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "phone_already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Reader updated")
		http.Redirect(w, r, "/admin/readers", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, reader)
}

// Delete removes a reader. Blocked while they hold open issues.
func (h *ReaderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var open int64
	if err := h.DB.Model(&models.Issue{}).
		Where("reader_id = ? AND returned_date IS NULL", id).
		Count(&open).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if open > 0 {
		httpx.JSONError(w, http.StatusConflict, "reader_has_open_issues", nil)
		return
	}
	if err := h.DB.Delete(&models.Reader{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Reader removed")
		http.Redirect(w, r, "/admin/readers", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
