package db

import (
	"errors"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/gorm"
)

// Seed inserts baseline reference data. Safe to call repeatedly.
func Seed(db *gorm.DB) error {
	baseCategories := []models.Category{
		{Name: "Fiction"},
		{Name: "Non-fiction"},
		{Name: "Science"},
		{Name: "History"},
		{Name: "Children"},
	}
	for _, c := range baseCategories {
		var existing models.Category
		err := db.Where("name = ?", c.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&c).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
