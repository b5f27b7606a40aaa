package models

import "time"

// Loan workflow models.
//
// An Issue is "open" while ReturnedDate is nil. An IssueRequest is "open"
// while neither Approved nor Rejected is set; once either flag is set the
// request is terminal.
type Issue struct {
	ID           uint      `gorm:"primaryKey"`
	ReaderID     uint      `gorm:"not null;index"`
	Reader       Reader    `gorm:"foreignKey:ReaderID"`
	BookID       uint      `gorm:"not null;index"`
	Book         Book      `gorm:"foreignKey:BookID"`
	IssuedDate   time.Time `gorm:"not null"`
	DueDate      time.Time `gorm:"not null;index"`
	ReturnedDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the issue is still outstanding.
func (i *Issue) Open() bool { return i.ReturnedDate == nil }

type IssueRequest struct {
	ID          uint      `gorm:"primaryKey"`
	ReaderID    uint      `gorm:"not null;index"`
	Reader      Reader    `gorm:"foreignKey:ReaderID"`
	BookID      uint      `gorm:"not null;index"`
	Book        Book      `gorm:"foreignKey:BookID"`
	RequestDate time.Time `gorm:"not null"`
	Approved    bool      `gorm:"not null;default:false"`
	Rejected    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Open reports whether the request is still awaiting moderation.
func (r *IssueRequest) Open() bool { return !r.Approved && !r.Rejected }

// Fine attaches one-to-one to an overdue Issue. It is never deleted, only
// marked paid.
type Fine struct {
	ID             uint      `gorm:"primaryKey"`
	IssueID        uint      `gorm:"not null;unique"`
	Issue          Issue     `gorm:"foreignKey:IssueID"`
	Amount         float64   `gorm:"not null;default:0"`
	Paid           bool      `gorm:"not null;default:false"`
	CalculatedDate time.Time `gorm:"not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
