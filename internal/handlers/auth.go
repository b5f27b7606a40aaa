package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/pranaya890/LMS/internal/auth"
	"github.com/pranaya890/LMS/internal/httpx"
	"github.com/pranaya890/LMS/internal/models"
	"github.com/pranaya890/LMS/internal/services"
	"github.com/pranaya890/LMS/internal/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler signs readers and admins in and out. Both roles share the
// session cookie; the role inside the signed payload separates them.
type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/signup", h.readerSignup)
	mux.HandleFunc("/login", h.readerLogin)
	mux.HandleFunc("/logout", h.logout)
	mux.HandleFunc("/admin/signup", h.adminSignup)
	mux.HandleFunc("/admin/login", h.adminLogin)
	mux.HandleFunc("/admin/logout", h.logout)
}

func (h *AuthHandler) readerSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "signup", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
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
		if httpx.WantsHTML(r) {
			renderTemplate(w, r, "signup", map[string]any{"Errors": v})
			return
		}
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	reader := models.Reader{
		ReaderID:    cardNumber,
		Name:        name,
		DateOfBirth: dob,
		PhoneNumber: phone,
		Address:     address,
		Password:    string(hash),
	}
	if err := h.DB.Create(&reader).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			if httpx.WantsHTML(r) {
				renderTemplate(w, r, "signup", map[string]any{"Error": "card number or phone already registered"})
				return
			}
			httpx.JSONError(w, http.StatusConflict, "already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "signup_failed", nil)
		return
	}
	auth.CreateSession(w, auth.RoleReader, reader.ID)
	if httpx.WantsHTML(r) {
		http.Redirect(w, r, "/dashboard", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": reader.ID})
}

func (h *AuthHandler) readerLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if auth.ReaderID(r.Context()) != 0 {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	cardNumber := strings.TrimSpace(r.FormValue("reader_id"))
	pass := r.FormValue("password")

	var reader models.Reader
	err := h.DB.Where("reader_id = ?", cardNumber).First(&reader).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(reader.Password), []byte(pass)) != nil {
		h.loginFailed(w, r, "login")
		return
	}
	auth.CreateSession(w, auth.RoleReader, reader.ID)
	if httpx.WantsHTML(r) {
		http.Redirect(w, r, "/dashboard", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": reader.ID, "name": reader.Name})
}

func (h *AuthHandler) adminSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		renderTemplate(w, r, "admin_signup", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	adminID := strings.TrimSpace(r.FormValue("admin_id"))
	name := strings.TrimSpace(r.FormValue("name"))
	pass := r.FormValue("password")

	v := validation.Violations{}
	validation.Required("admin_id", adminID, v)
	validation.Required("name", name, v)
	validation.Required("password", pass, v)
	validation.MaxLen("admin_id", adminID, 20, v)
	if !v.Empty() {
		if httpx.WantsHTML(r) {
			renderTemplate(w, r, "admin_signup", map[string]any{"Errors": v})
			return
		}
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	admin := models.Admin{AdminID: adminID, Name: name, Password: string(hash)}
	if err := h.DB.Create(&admin).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "signup_failed", nil)
		return
	}
	auth.CreateSession(w, auth.RoleAdmin, admin.ID)
	if httpx.WantsHTML(r) {
		http.Redirect(w, r, "/admin/dashboard", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": admin.ID})
}

func (h *AuthHandler) adminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if auth.AdminID(r.Context()) != 0 {
			http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "admin_login", nil)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET,POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_form", nil)
		return
	}
	adminID := strings.TrimSpace(r.FormValue("admin_id"))
	pass := r.FormValue("password")

	var admin models.Admin
	err := h.DB.Where("admin_id = ?", adminID).First(&admin).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(pass)) != nil {
		h.loginFailed(w, r, "admin_login")
		return
	}
	auth.CreateSession(w, auth.RoleAdmin, admin.ID)
	if httpx.WantsHTML(r) {
		http.Redirect(w, r, "/admin/dashboard", statusSeeOther)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": admin.ID, "name": admin.Name})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, page string) {
	err := services.ErrInvalidCredentials
	if httpx.WantsHTML(r) {
		w.WriteHeader(http.StatusUnauthorized)
		renderTemplate(w, r, page, map[string]any{"Error": err.Error()})
		return
	}
	httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, _ := auth.IdentityFromContext(r.Context())
	auth.ClearSession(w)
	if id.Role == auth.RoleAdmin {
		http.Redirect(w, r, "/admin/login", statusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", statusSeeOther)
}

// VerifyPrincipal is the session verifier wired at bootstrap: it checks the
// principal named by a cookie still exists.
func VerifyPrincipal(db *gorm.DB) auth.Verifier {
	return func(ctx context.Context, role auth.Role, id uint) bool {
		var count int64
		var err error
		switch role {
		case auth.RoleAdmin:
			err = db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Count(&count).Error
		default:
			err = db.WithContext(ctx).Model(&models.Reader{}).Where("id = ?", id).Count(&count).Error
		}
		return err == nil && count > 0
	}
}
