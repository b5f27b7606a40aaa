package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	err = conn.AutoMigrate(
		&models.Category{}, &models.Book{}, &models.Reader{}, &models.Admin{},
		&models.Issue{}, &models.IssueRequest{}, &models.Fine{},
		&models.Notification{}, &models.BookIssuanceRecord{}, &models.BookRating{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func postForm(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("Accept", "application/json")
	return r
}
