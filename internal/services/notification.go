package services

import (
	"fmt"
	"time"

	"github.com/pranaya890/LMS/internal/models"
	"gorm.io/gorm"
)

// dueSoonLeadDays is how many days before the due date the reminder fires.
const dueSoonLeadDays = 2

// NotificationService derives reader-facing alerts from loan state. Sweeps
// are idempotent: at most one due_soon and one overdue notification exist
// per issue, enforced by a dedup check before insert.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// OnIssue emits the "issued" notification for a fresh issue.
func (s *NotificationService) OnIssue(issue *models.Issue) error {
	var book models.Book
	if err := s.DB.First(&book, issue.BookID).Error; err != nil {
		return notFoundOr(err)
	}
	n := models.Notification{
		ReaderID: issue.ReaderID,
		IssueID:  &issue.ID,
		Type:     models.NotificationIssued,
		Title:    "Book issued",
		Message:  fmt.Sprintf("%q has been issued to you. It is due on %s.", book.Name, issue.DueDate.Format("2006-01-02")),
	}
	return s.DB.Create(&n).Error
}

// OnReject emits the "request_rejected" notification. The request's Book
// association must be loaded.
func (s *NotificationService) OnReject(req *models.IssueRequest) error {
	n := models.Notification{
		ReaderID: req.ReaderID,
		Type:     models.NotificationRequestRejected,
		Title:    "Request rejected",
		Message:  fmt.Sprintf("Your request for %q was rejected.", req.Book.Name),
	}
	return s.DB.Create(&n).Error
}

// SweepDueSoon emits one reminder for every open issue due in exactly two
// days that does not have one yet. Returns the number emitted.
func (s *NotificationService) SweepDueSoon(today time.Time) (int, error) {
	target := DateOf(today).AddDate(0, 0, dueSoonLeadDays)
	emitted := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var issues []models.Issue
		if err := tx.Preload("Book").
			Where("returned_date IS NULL AND due_date = ?", target).
			Find(&issues).Error; err != nil {
			return err
		}
		for _, issue := range issues {
			exists, err := s.exists(tx, issue.ID, models.NotificationDueSoon)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			n := models.Notification{
				ReaderID: issue.ReaderID,
				IssueID:  &issue.ID,
				Type:     models.NotificationDueSoon,
				Title:    "Book due soon",
				Message:  fmt.Sprintf("%q is due on %s. Please return it in time.", issue.Book.Name, issue.DueDate.Format("2006-01-02")),
			}
			if err := tx.Create(&n).Error; err != nil {
				return err
			}
			emitted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return emitted, nil
}

// SweepOverdue emits one notice for every open issue past due that lacks
// one. Days overdue are computed at emission time only.
func (s *NotificationService) SweepOverdue(today time.Time) (int, error) {
	today = DateOf(today)
	emitted := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var issues []models.Issue
		if err := tx.Preload("Book").
			Where("returned_date IS NULL AND due_date < ?", today).
			Find(&issues).Error; err != nil {
			return err
		}
		for _, issue := range issues {
			exists, err := s.exists(tx, issue.ID, models.NotificationOverdue)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			days := int(today.Sub(DateOf(issue.DueDate)).Hours() / 24)
			n := models.Notification{
				ReaderID: issue.ReaderID,
				IssueID:  &issue.ID,
				Type:     models.NotificationOverdue,
				Title:    "Book overdue",
				Message:  fmt.Sprintf("%q is %d day(s) overdue. Please return it as soon as possible.", issue.Book.Name, days),
			}
			if err := tx.Create(&n).Error; err != nil {
				return err
			}
			emitted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return emitted, nil
}

func (s *NotificationService) exists(tx *gorm.DB, issueID uint, typ string) (bool, error) {
	var count int64
	err := tx.Model(&models.Notification{}).
		Where("issue_id = ? AND type = ?", issueID, typ).
		Count(&count).Error
	return count > 0, err
}

// ListForReader returns the reader's notifications newest first.
func (s *NotificationService) ListForReader(readerID uint) ([]models.Notification, error) {
	var ns []models.Notification
	err := s.DB.Where("reader_id = ?", readerID).
		Order("created_at desc, id desc").
		Find(&ns).Error
	return ns, err
}

// UnreadCount returns the number of unread notifications for a reader.
func (s *NotificationService) UnreadCount(readerID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("reader_id = ? AND read = ?", readerID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one of the reader's notifications as read.
func (s *NotificationService) MarkRead(readerID, notificationID uint) error {
	res := s.DB.Model(&models.Notification{}).
		Where("id = ? AND reader_id = ?", notificationID, readerID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification of the reader as read.
func (s *NotificationService) MarkAllRead(readerID uint) error {
	return s.DB.Model(&models.Notification{}).
		Where("reader_id = ? AND read = ?", readerID, false).
		Update("read", true).Error
}
