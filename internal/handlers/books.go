package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/middleware"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/services"
	"github.com/pranaya890/LMS/internal/validation"
	"gorm.io/gorm"
)

// BookHandler serves the public catalog and the admin book CRUD.
type BookHandler struct {
	DB        *gorm.DB
	Ratings   *services.RatingService
	Analytics *services.AnalyticsService
	// CoverDir is where uploaded cover images land.
	CoverDir string
}

func NewBookHandler(db *gorm.DB, ratings *services.RatingService, analytics *services.AnalyticsService, coverDir string) *BookHandler {
	return &BookHandler{DB: db, Ratings: ratings, Analytics: analytics, CoverDir: coverDir}
}

// List renders the catalog alphabetically, optionally filtered by search
// query and category.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	categoryID := formID(r, "category_id")

	dbq := h.DB.Preload("Category").Order("name asc")
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(author) LIKE ? OR lower(isbn) LIKE ?", like, like, like)
	}
	if categoryID != 0 {
		dbq = dbq.Where("category_id = ?", categoryID)
	}
	var books []models.Book
	if err := dbq.Find(&books).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_books", nil)
		return
	}
	if httpx.WantsHTML(r) {
		var categories []models.Category
		_ = h.DB.Order("name asc").Find(&categories).Error
		renderTemplate(w, r, "books", map[string]any{
			"Books":      books,
			"Categories": categories,
			"Query":      query,
			"CategoryID": categoryID,
			"Flash":      middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": books, "total": len(books)})
}

// Details shows one book with its combined rating and a popular shelf
// excluding the book itself.
func (h *BookHandler) Details(w http.ResponseWriter, r *http.Request) {
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var book models.Book
	if err := h.DB.Preload("Category").First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_book", nil)
		return
	}
	combined, err := h.Ratings.Combined(book.ID)
	if err != nil {
		combined = book.Rating
	}
	readerAvg, err := h.Ratings.ReaderAverage(book.ID)
	if err != nil {
		readerAvg = book.Rating
	}
	popular, _ := h.Analytics.Popular(4, book.ID)
	if httpx.WantsHTML(r) {
		renderTemplate(w, r, "book_details", map[string]any{
			"Book":          book,
			"Combined":      combined,
			"ReaderAverage": readerAvg,
			"Popular":       popular,
			"Flash":         middleware.PopFlash(w, r),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"book":            book,
		"combined_rating": combined,
		"reader_average":  readerAvg,
		"popular":         popular,
	})
}

// Create adds a book to the catalog (admin only; gating happens in the
// router). Accepts a multipart form so the cover can be uploaded in the
// same request.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := h.parseForm(r); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	isbn := strings.TrimSpace(r.FormValue("isbn"))
	author := strings.TrimSpace(r.FormValue("author"))
	stock, _ := strconv.Atoi(r.FormValue("number_in_stock"))
	rating := 4.0
	if v := r.FormValue("rating"); v != "" {
		rating, _ = strconv.ParseFloat(v, 64)
	}

	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.Required("isbn", isbn, v)
	validation.Required("author", author, v)
	validation.MaxLen("isbn", isbn, 13, v)
	validation.NonNegativeInt("number_in_stock", stock, v)
	validation.RangeFloat("rating", rating, 1, 5, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	book := models.Book{
		Name:          name,
		ISBN:          isbn,
		Author:        author,
		NumberInStock: stock,
		Rating:        rating,
	}
	if desc := strings.TrimSpace(r.FormValue("description")); desc != "" {
		book.Description = desc
	}
	if catID := formID(r, "category_id"); catID != 0 {
		book.CategoryID = &catID
	}
	if path, err := h.saveCover(r); err == nil && path != "" {
		book.ImagePath = path
	}
	if err := h.DB.Create(&book).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "isbn_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "book_create_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Book added")
		http.Redirect(w, r, "/books", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, book)
}

// Update edits catalog fields. ISBN is immutable.
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := h.parseForm(r); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	id := formID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var book models.Book
	if err := h.DB.First(&book, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if v := strings.TrimSpace(r.FormValue("name")); v != "" {
		book.Name = v
	}
	if v := strings.TrimSpace(r.FormValue("author")); v != "" {
		book.Author = v
	}
	if v := strings.TrimSpace(r.FormValue("description")); v != "" {
		book.Description = v
	}
	if v := r.FormValue("number_in_stock"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			book.NumberInStock = n
		}
	}
	if v := r.FormValue("rating"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1 && f <= 5 {
			book.Rating = f
		}
	}
	if catID := formID(r, "category_id"); catID != 0 {
		book.CategoryID = &catID
	}
	if path, err := h.saveCover(r); err == nil && path != "" {
		book.ImagePath = path
	}
	if err := h.DB.Save(&book).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Book updated")
		http.Redirect(w, r, "/books/details?id="+strconv.FormatUint(uint64(book.ID), 10), statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

// Delete removes a book. Blocked while copies are out on loan.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		Where("book_id = ? AND returned_date IS NULL", id).
		Count(&open).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if open > 0 {
		httpx.JSONError(w, http.StatusConflict, "book_on_loan", nil)
		return
	}
	if err := h.DB.Delete(&models.Book{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if httpx.WantsHTML(r) {
		middleware.Flash(w, "Book removed")
		http.Redirect(w, r, "/books", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *BookHandler) parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(8 << 20)
	}
	return r.ParseForm()
}

// saveCover stores an uploaded cover under CoverDir with a random filename,
// returning the stored name. Empty when no file was attached.
func (h *BookHandler) saveCover(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("cover")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return "", errors.New("unsupported image type")
	}
	if err := os.MkdirAll(h.CoverDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(h.CoverDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return name, nil
}
