package services

import (
	"time"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// popularRatingFloor filters the popular picks to highly rated books.
const popularRatingFloor = 4.5

// AnalyticsService tallies daily issuance counts per book.
type AnalyticsService struct {
	DB *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService { return &AnalyticsService{DB: db} }

// RecordIssuance increments the daily counter row for (book, date),
// creating it at 1 when absent. The upsert keeps concurrent tallies atomic.
func (s *AnalyticsService) RecordIssuance(bookID uint, date time.Time) error {
	rec := models.BookIssuanceRecord{BookID: bookID, Date: DateOf(date), QuantityIssued: 1}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "book_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity_issued": gorm.Expr("quantity_issued + 1"),
			"updated_at":      time.Now(),
		}),
	}).Create(&rec).Error
}

type SeriesPoint struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
}

type Series struct {
	Points []SeriesPoint `json:"points"`
	Total  int           `json:"total"`
	// AvgPerDay averages over days that have records, not the full window.
	AvgPerDay float64 `json:"avg_per_day"`
}

// Series returns the issuance counts for the book within
// [today-windowDays, today], oldest first, with the window total and the
// average per day-with-data.
func (s *AnalyticsService) Series(bookID uint, windowDays int, today time.Time) (Series, error) {
	today = DateOf(today)
	from := today.AddDate(0, 0, -windowDays)
	var recs []models.BookIssuanceRecord
	if err := s.DB.Where("book_id = ? AND date >= ? AND date <= ?", bookID, from, today).
		Order("date asc").
		Find(&recs).Error; err != nil {
		return Series{}, err
	}
	out := Series{Points: make([]SeriesPoint, 0, len(recs))}
	for _, r := range recs {
		out.Points = append(out.Points, SeriesPoint{Date: r.Date, Quantity: r.QuantityIssued})
		out.Total += r.QuantityIssued
	}
	days := len(recs)
	if days < 1 {
		days = 1
	}
	out.AvgPerDay = float64(out.Total) / float64(days)
	return out, nil
}

// Popular picks up to limit books with an admin rating above 4.5, in random
// order, optionally excluding one book (the one currently displayed).
func (s *AnalyticsService) Popular(limit int, excludeBookID uint) ([]models.Book, error) {
	q := s.DB.Where("rating > ?", popularRatingFloor)
	if excludeBookID != 0 {
		q = q.Where("id <> ?", excludeBookID)
	}
	var books []models.Book
	err := q.Order("RANDOM()").Limit(limit).Find(&books).Error
	return books, err
}
