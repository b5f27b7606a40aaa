package services

import (
	"math"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingService combines the admin-assigned rating with per-reader ratings.
type RatingService struct {
	DB *gorm.DB
}

func NewRatingService(db *gorm.DB) *RatingService { return &RatingService{DB: db} }

// ReaderAverage is the mean of all reader ratings for the book, falling back
// to the admin rating when no reader has rated it yet.
func (s *RatingService) ReaderAverage(bookID uint) (float64, error) {
	var book models.Book
	if err := s.DB.First(&book, bookID).Error; err != nil {
		return 0, notFoundOr(err)
	}
	var avg *float64
	if err := s.DB.Model(&models.BookRating{}).
		Where("book_id = ?", bookID).
		Select("AVG(rating)").Scan(&avg).Error; err != nil {
		return 0, err
	}
	if avg == nil {
		return book.Rating, nil
	}
	return *avg, nil
}

// Combined is the mean of the admin rating and the reader average, rounded
// to one decimal.
func (s *RatingService) Combined(bookID uint) (float64, error) {
	var book models.Book
	if err := s.DB.First(&book, bookID).Error; err != nil {
		return 0, notFoundOr(err)
	}
	readerAvg, err := s.ReaderAverage(bookID)
	if err != nil {
		return 0, err
	}
	return round1((book.Rating + readerAvg) / 2), nil
}

// Submit upserts the reader's single rating row for the book and returns the
// recomputed combined rating and reader average.
func (s *RatingService) Submit(readerID, bookID uint, value float64) (combined, readerAvg float64, err error) {
	if value < 1 || value > 5 {
		return 0, 0, ErrOutOfRange
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var reader models.Reader
		if err := tx.First(&reader, readerID).Error; err != nil {
			return notFoundOr(err)
		}
		var book models.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			return notFoundOr(err)
		}
		rating := models.BookRating{BookID: bookID, ReaderID: readerID, Rating: value}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}, {Name: "reader_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).Create(&rating).Error
	})
	if err != nil {
		return 0, 0, err
	}
	readerAvg, err = s.ReaderAverage(bookID)
	if err != nil {
		return 0, 0, err
	}
	combined, err = s.Combined(bookID)
	if err != nil {
		return 0, 0, err
	}
	return combined, readerAvg, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
