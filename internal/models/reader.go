package models

import "time"

// Membership models
type Reader struct {
	ID          uint      `gorm:"primaryKey"`
	ReaderID    string    `gorm:"size:20;not null;unique"` // library card number
	Name        string    `gorm:"not null;index"`
	DateOfBirth time.Time `gorm:"not null"`
	PhoneNumber string    `gorm:"size:15;not null;unique"`
	Address     string    `gorm:"not null"`
	Password    string    `gorm:"not null"` // bcrypt hash
	// Staff members borrow under a longer loan duration.
	IsStaffMember bool `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Admin struct {
	ID        uint   `gorm:"primaryKey"`
	AdminID   string `gorm:"size:20;not null;unique"`
	Name      string `gorm:"not null"`
	Password  string `gorm:"not null"` // bcrypt hash
	CreatedAt time.Time
	UpdatedAt time.Time
}
