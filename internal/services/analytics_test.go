package services

import (
	"testing"

	"github.com/pranaya890/LMS/internal/models"
)

func TestRecordIssuanceIncrementsDailyCounter(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAnalyticsService(db)
	book := seedBook(t, db, "9780000000001", 5)

	today := Today()
	for i := 0; i < 3; i++ {
		if err := svc.RecordIssuance(book.ID, today); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if err := svc.RecordIssuance(book.ID, today.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("record yesterday: %v", err)
	}

	var recs []models.BookIssuanceRecord
	if err := db.Where("book_id = ?", book.ID).Order("date asc").Find(&recs).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 daily rows got %d", len(recs))
	}
	if recs[1].QuantityIssued != 3 || recs[0].QuantityIssued != 1 {
		t.Fatalf("unexpected tallies: %d, %d", recs[0].QuantityIssued, recs[1].QuantityIssued)
	}
}

func TestSeriesTotalsAndAverage(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAnalyticsService(db)
	book := seedBook(t, db, "9780000000001", 5)
	today := Today()

	// 3 issued today, 1 two days ago, 1 outside the window.
	for i := 0; i < 3; i++ {
		if err := svc.RecordIssuance(book.ID, today); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := svc.RecordIssuance(book.ID, today.AddDate(0, 0, -2)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.RecordIssuance(book.ID, today.AddDate(0, 0, -40)); err != nil {
		t.Fatalf("record: %v", err)
	}

	series, err := svc.Series(book.ID, 30, today)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series.Points) != 2 {
		t.Fatalf("expected 2 points in window got %d", len(series.Points))
	}
	if series.Total != 4 {
		t.Fatalf("expected total 4 got %d", series.Total)
	}
	// Average over days with data (2), not the 30-day window.
	if series.AvgPerDay != 2 {
		t.Fatalf("expected avg 2 got %v", series.AvgPerDay)
	}
	if !series.Points[0].Date.Before(series.Points[1].Date) {
		t.Fatal("expected points ordered oldest first")
	}
}

func TestSeriesEmptyWindow(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAnalyticsService(db)
	book := seedBook(t, db, "9780000000001", 5)

	series, err := svc.Series(book.ID, 7, Today())
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if series.Total != 0 || series.AvgPerDay != 0 || len(series.Points) != 0 {
		t.Fatalf("expected empty series got %+v", series)
	}
}

func TestPopularFiltersAndExcludes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAnalyticsService(db)

	high1 := seedBook(t, db, "9780000000001", 1)
	db.Model(high1).Update("rating", 4.9)
	high2 := seedBook(t, db, "9780000000002", 1)
	db.Model(high2).Update("rating", 4.6)
	low := seedBook(t, db, "9780000000003", 1)
	db.Model(low).Update("rating", 4.5) // floor is exclusive

	books, err := svc.Popular(10, 0)
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("expected 2 popular books got %d", len(books))
	}
	for _, b := range books {
		if b.ID == low.ID {
			t.Fatal("book at the rating floor must be excluded")
		}
	}

	books, err = svc.Popular(10, high1.ID)
	if err != nil {
		t.Fatalf("popular with exclusion: %v", err)
	}
	if len(books) != 1 || books[0].ID != high2.ID {
		t.Fatalf("expected only the other high-rated book, got %+v", books)
	}

	books, err = svc.Popular(1, 0)
	if err != nil {
		t.Fatalf("popular with limit: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected limit to cap results, got %d", len(books))
	}
}
