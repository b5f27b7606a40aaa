package models

import "time"

// Notification types derived from loan state.
const (
	NotificationIssued          = "issued"
	NotificationDueSoon         = "due_soon"
	NotificationOverdue         = "overdue"
	NotificationRequestRejected = "request_rejected"
)

type Notification struct {
	ID       uint   `gorm:"primaryKey"`
	ReaderID uint   `gorm:"not null;index"`
	Reader   Reader `gorm:"foreignKey:ReaderID"`
	// IssueID is nil for notifications not tied to an issue (rejections).
	IssueID   *uint  `gorm:"index"`
	Issue     *Issue `gorm:"foreignKey:IssueID"`
	Type      string `gorm:"size:20;not null;index"`
	Title     string `gorm:"not null"`
	Message   string `gorm:"not null"`
	Read      bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
