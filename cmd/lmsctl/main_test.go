package main

import (
	"strings"
	"testing"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestImportBooks(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Book{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	csvData := strings.Join([]string{
		"name,isbn,author,category,stock,rating",
		"Cosmos,9780345331359,Carl Sagan,Science,4,4.8",
		"Dune,9780441172719,Frank Herbert,,2,",
		",missing-name,Nobody",
		"Cosmos,9780345331359,Carl Sagan,Science,4,4.8",
	}, "\n")

	imported, skipped, err := importBooks(conn, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported != 2 {
		t.Fatalf("expected 2 imported got %d", imported)
	}
	if skipped != 2 {
		t.Fatalf("expected 2 skipped (bad row + duplicate) got %d", skipped)
	}

	var cosmos models.Book
	if err := conn.Preload("Category").Where("isbn = ?", "9780345331359").First(&cosmos).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if cosmos.NumberInStock != 4 || cosmos.Rating != 4.8 {
		t.Fatalf("unexpected fields: stock=%d rating=%v", cosmos.NumberInStock, cosmos.Rating)
	}
	if cosmos.CategoryID == nil {
		t.Fatal("expected category to be created and linked")
	}

	var dune models.Book
	if err := conn.Where("isbn = ?", "9780441172719").First(&dune).Error; err != nil {
		t.Fatalf("load dune: %v", err)
	}
	if dune.Rating != 4.0 {
		t.Fatalf("expected default rating 4.0 got %v", dune.Rating)
	}
	if dune.CategoryID != nil {
		t.Fatal("expected no category for empty column")
	}
}
