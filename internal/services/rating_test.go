package services

import (
	"errors"
	"math"
	"testing"

	"github.com/pranaya890/LMS/internal/models"
)

func TestReaderAverageFallsBackToAdminRating(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRatingService(db)
	book := seedBook(t, db, "9780000000001", 1)
	db.Model(book).Update("rating", 3.5)

	avg, err := svc.ReaderAverage(book.ID)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if avg != 3.5 {
		t.Fatalf("expected admin fallback 3.5 got %v", avg)
	}
	combined, err := svc.Combined(book.ID)
	if err != nil {
		t.Fatalf("combined: %v", err)
	}
	if combined != 3.5 {
		t.Fatalf("expected combined 3.5 got %v", combined)
	}
}

func TestSubmitOutOfRange(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRatingService(db)
	reader := seedReader(t, db, "R1", false)
	book := seedBook(t, db, "9780000000001", 1)

	for _, v := range []float64{0, 0.9, 5.1, 6} {
		if _, _, err := svc.Submit(reader.ID, book.ID, v); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("value %v: expected ErrOutOfRange got %v", v, err)
		}
	}
	var count int64
	db.Model(&models.BookRating{}).Count(&count)
	if count != 0 {
		t.Fatalf("no rating row may exist after rejected submits, got %d", count)
	}
}

func TestSubmitUpsertsSingleRow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRatingService(db)
	reader := seedReader(t, db, "R1", false)
	book := seedBook(t, db, "9780000000001", 1) // admin rating 4.0

	combined, readerAvg, err := svc.Submit(reader.ID, book.ID, 2)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if readerAvg != 2 {
		t.Fatalf("expected reader average 2 got %v", readerAvg)
	}
	if combined != 3 { // (4.0 + 2.0) / 2
		t.Fatalf("expected combined 3 got %v", combined)
	}

	combined, readerAvg, err = svc.Submit(reader.ID, book.ID, 5)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if readerAvg != 5 {
		t.Fatalf("expected refreshed average 5 got %v", readerAvg)
	}
	if combined != 4.5 {
		t.Fatalf("expected combined 4.5 got %v", combined)
	}
	var count int64
	db.Model(&models.BookRating{}).Where("book_id = ? AND reader_id = ?", book.ID, reader.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single upserted row got %d", count)
	}
}

func TestCombinedStaysBetweenComponents(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRatingService(db)
	book := seedBook(t, db, "9780000000001", 1)
	db.Model(book).Update("rating", 4.8)

	values := []float64{1, 2.5, 3, 4.6}
	for i, v := range values {
		r := seedReader(t, db, "R"+string(rune('1'+i)), false)
		if _, _, err := svc.Submit(r.ID, book.ID, v); err != nil {
			t.Fatalf("submit %v: %v", v, err)
		}
	}
	readerAvg, err := svc.ReaderAverage(book.ID)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	combined, err := svc.Combined(book.ID)
	if err != nil {
		t.Fatalf("combined: %v", err)
	}
	lo := math.Min(4.8, readerAvg)
	hi := math.Max(4.8, readerAvg)
	// Allow the one-decimal rounding at the boundaries.
	if combined < round1(lo)-0.05 || combined > round1(hi)+0.05 {
		t.Fatalf("combined %v outside [%v, %v]", combined, lo, hi)
	}
}

func TestSubmitUnknownBook(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRatingService(db)
	reader := seedReader(t, db, "R1", false)
	if _, _, err := svc.Submit(reader.ID, 9999, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
