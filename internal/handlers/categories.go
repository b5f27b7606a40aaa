package handlers

import (
	"net/http"
	"strings"

	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/validation"
	"gorm.io/gorm"
)

type CategoryHandler struct{ DB *gorm.DB }

func NewCategoryHandler(db *gorm.DB) *CategoryHandler { return &CategoryHandler{DB: db} }

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	var categories []models.Category
	if err := h.DB.Order("name asc").Find(&categories).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_categories", nil)
		return
	}
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "categories", map[string]any{
			"Categories": categories,
			"Flash":      middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": categories, "total": len(categories)})
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	v := validation.Violations{}
	validation.Required("name", name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	category := models.Category{Name: name}
	if err := h.DB.Create(&category).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "category_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "category_create_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Category added")
		http.Redirect(w, r, "/admin/categories", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

// Delete removes a category; its books become uncategorized.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Book{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Category removed")
		http.Redirect(w, r, "/admin/categories", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
