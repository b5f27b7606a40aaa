package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pranaya890/LMS/internal/config"
	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAppServesAPI(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := conn.AutoMigrate(&models.Reader{}, &models.Admin{}, &models.Book{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	app := NewApp(conn, config.Config{IssueLimit: 5, FineRate: 2, CoverDir: t.TempDir()})

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/books" {
		t.Fatalf("expected root redirect to /books got %d %q", w.Code, w.Header().Get("Location"))
	}
}
