package models

import "time"

// Catalog domain models
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;unique"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Book struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"not null;index"`
	ISBN          string `gorm:"size:13;not null;unique"`
	Author        string `gorm:"not null;index"`
	CategoryID    *uint  // nullable: a book may be uncategorized
	Category      *Category `gorm:"foreignKey:CategoryID"`
	NumberInStock int       `gorm:"not null;default:0"` // available copies, kept >= 0 by the loan workflow
	Rating        float64   `gorm:"not null;default:4.0"` // admin-assigned, 1.0..5.0
	Description   string    `gorm:"default:'No description available'"`
	ImagePath     string    // stored cover image filename, empty when none
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookIssuanceRecord tallies how many copies of a book were issued per day.
type BookIssuanceRecord struct {
	ID             uint      `gorm:"primaryKey"`
	BookID         uint      `gorm:"not null;index:idx_book_date,unique,priority:1"`
	Book           Book      `gorm:"foreignKey:BookID"`
	Date           time.Time `gorm:"not null;index:idx_book_date,unique,priority:2"`
	QuantityIssued int       `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookRating is a single reader's rating of a book, one row per (book, reader).
type BookRating struct {
	ID        uint    `gorm:"primaryKey"`
	BookID    uint    `gorm:"not null;index:idx_book_reader,unique,priority:1"`
	Book      Book    `gorm:"foreignKey:BookID"`
	ReaderID  uint    `gorm:"not null;index:idx_book_reader,unique,priority:2"`
	Reader    Reader  `gorm:"foreignKey:ReaderID"`
	Rating    float64 `gorm:"not null"` // 1.0..5.0
	CreatedAt time.Time
	UpdatedAt time.Time
}
