package db

import (
	"testing"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestSeedIdempotent(t *testing.T) {
	d, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.AutoMigrate(&models.Category{}); err != nil {
		t.Fatal(err)
	}
	if err := Seed(d); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := Seed(d); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var count int64
	d.Model(&models.Category{}).Count(&count)
	if count < 3 {
		t.Fatalf("expected baseline categories got %d", count)
	}
	var c1 int64
	d.Model(&models.Category{}).Where("name = ?", "Fiction").Count(&c1)
	if c1 != 1 {
		t.Fatalf("baseline category duplicated or missing: Fiction=%d", c1)
	}
}

func TestIsPostgresDSN(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@localhost:5432/lms": true,
		"host=localhost dbname=lms":         true,
		"file:lms.db":                       false,
		"lms.db":                            false,
	}
	for dsn, want := range cases {
		if got := IsPostgresDSN(dsn); got != want {
			t.Fatalf("IsPostgresDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}
