package services

import (
	"errors"
	"time"

	applog "github.com/pranaya890/LMS/internal/log"
	"github.com/pranaya890/LMS/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Loan durations in days.
const (
	readerLoanDays = 14
	staffLoanDays  = 182
	// DirectIssue accepts an explicit due date up to this many days out.
	maxCustomLoanDays = 30
)

// LoanService owns the request/approve/reject/issue/return/fine workflow.
// Every mutation runs inside one transaction; notification and analytics
// side effects run after commit and are best effort.
type LoanService struct {
	DB *gorm.DB
	// Limit is the per-reader ceiling on open issues + open requests.
	Limit    int
	FineRate float64
	// FineAccrue refreshes unpaid fine amounts on each evaluation instead of
	// freezing them at creation time.
	FineAccrue bool
	Notifier   *NotificationService
	Analytics  *AnalyticsService
}

func NewLoanService(db *gorm.DB, limit int, fineRate float64, fineAccrue bool, n *NotificationService, a *AnalyticsService) *LoanService {
	return &LoanService{DB: db, Limit: limit, FineRate: fineRate, FineAccrue: fineAccrue, Notifier: n, Analytics: a}
}

// Today returns the wall-clock date truncated to UTC midnight. All loan
// arithmetic works on whole dates.
func Today() time.Time { return DateOf(time.Now()) }

// DateOf truncates a time to its UTC date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dueDateFor(reader *models.Reader, issued time.Time) time.Time {
	if reader.IsStaffMember {
		return issued.AddDate(0, 0, staffLoanDays)
	}
	return issued.AddDate(0, 0, readerLoanDays)
}

// openCount is the number of open issues plus open requests held by a reader.
func openCount(tx *gorm.DB, readerID uint) (int64, error) {
	var issues, requests int64
	if err := tx.Model(&models.Issue{}).
		Where("reader_id = ? AND returned_date IS NULL", readerID).
		Count(&issues).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&models.IssueRequest{}).
		Where("reader_id = ? AND approved = ? AND rejected = ?", readerID, false, false).
		Count(&requests).Error; err != nil {
		return 0, err
	}
	return issues + requests, nil
}

func hasOpenIssue(tx *gorm.DB, readerID, bookID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Issue{}).
		Where("reader_id = ? AND book_id = ? AND returned_date IS NULL", readerID, bookID).
		Count(&count).Error
	return count > 0, err
}

// SubmitRequest creates an open IssueRequest for the reader, enforcing the
// ceiling and both duplicate rules.
func (s *LoanService) SubmitRequest(readerID, bookID uint) (*models.IssueRequest, error) {
	var req models.IssueRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var reader models.Reader
		if err := tx.First(&reader, readerID).Error; err != nil {
			return notFoundOr(err)
		}
		var book models.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			return notFoundOr(err)
		}
		count, err := openCount(tx, readerID)
		if err != nil {
			return err
		}
		if count >= int64(s.Limit) {
			return ErrLimitExceeded
		}
		dup, err := hasOpenIssue(tx, readerID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateIssue
		}
		var pending int64
		if err := tx.Model(&models.IssueRequest{}).
			Where("reader_id = ? AND book_id = ? AND approved = ? AND rejected = ?", readerID, bookID, false, false).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrDuplicatePendingRequest
		}
		req = models.IssueRequest{ReaderID: readerID, BookID: bookID, RequestDate: Today()}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Approve re-checks the loan conditions and converts the request into an
// Issue. A failed check marks the request rejected and the rejection is
// committed; the returned sentinel only describes why, it does not mean the
// operation was rolled back.
//
// The ceiling comparison here is strictly-greater-than while SubmitRequest
// rejects at the ceiling. The off-by-one is inherited behavior, kept on
// purpose: an approval is allowed at exactly the limit.
func (s *LoanService) Approve(requestID uint) (*models.Issue, error) {
	var issue models.Issue
	var rejectReason error
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var req models.IssueRequest
		if err := tx.Preload("Reader").Preload("Book").
			Where("approved = ? AND rejected = ?", false, false).
			First(&req, requestID).Error; err != nil {
			return notFoundOr(err)
		}

		markRejected := func(reason error) error {
			rejectReason = reason
			return tx.Model(&req).Update("rejected", true).Error
		}

		count, err := openCount(tx, req.ReaderID)
		if err != nil {
			return err
		}
		if count > int64(s.Limit) {
			return markRejected(ErrLimitExceeded)
		}
		dup, err := hasOpenIssue(tx, req.ReaderID, req.BookID)
		if err != nil {
			return err
		}
		if dup {
			return markRejected(ErrDuplicateIssue)
		}
		if req.Book.NumberInStock <= 0 {
			return markRejected(ErrOutOfStock)
		}

		today := Today()
		issue = models.Issue{
			ReaderID:   req.ReaderID,
			BookID:     req.BookID,
			IssuedDate: today,
			DueDate:    dueDateFor(&req.Reader, today),
		}
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Book{}).Where("id = ?", req.BookID).
			Update("number_in_stock", gorm.Expr("number_in_stock - 1")).Error; err != nil {
			return err
		}
		return tx.Model(&req).Update("approved", true).Error
	})
	if err != nil {
		return nil, err
	}
	if rejectReason != nil {
		return nil, rejectReason
	}
	s.afterIssue(&issue)
	return &issue, nil
}

// Reject marks the request rejected and notifies the reader.
func (s *LoanService) Reject(requestID uint) (*models.IssueRequest, error) {
	var req models.IssueRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Book").
			Where("approved = ? AND rejected = ?", false, false).
			First(&req, requestID).Error; err != nil {
			return notFoundOr(err)
		}
		return tx.Model(&req).Update("rejected", true).Error
	})
	if err != nil {
		return nil, err
	}
	req.Rejected = true
	if nerr := s.Notifier.OnReject(&req); nerr != nil {
		// Best effort: the rejection itself stands.
		applog.Warn("rejection notification failed", zap.Uint("request", req.ID), zap.Error(nerr))
	}
	return &req, nil
}

// DirectIssue is the admin path that bypasses the request queue. An explicit
// due date must fall inside (issued, issued+30d]; when absent the staff or
// reader default applies. There is no ceiling check on this path.
func (s *LoanService) DirectIssue(readerID, bookID uint, due *time.Time) (*models.Issue, error) {
	var issue models.Issue
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var reader models.Reader
		if err := tx.First(&reader, readerID).Error; err != nil {
			return notFoundOr(err)
		}
		var book models.Book
		if err := tx.First(&book, bookID).Error; err != nil {
			return notFoundOr(err)
		}
		dup, err := hasOpenIssue(tx, readerID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateIssue
		}
		if book.NumberInStock <= 0 {
			return ErrOutOfStock
		}

		today := Today()
		dueDate := dueDateFor(&reader, today)
		if due != nil {
			d := DateOf(*due)
			if !d.After(today) || d.After(today.AddDate(0, 0, maxCustomLoanDays)) {
				return ErrInvalidDueDate
			}
			dueDate = d
		}
		issue = models.Issue{ReaderID: readerID, BookID: bookID, IssuedDate: today, DueDate: dueDate}
		if err := tx.Create(&issue).Error; err != nil {
			return err
		}
		return tx.Model(&models.Book{}).Where("id = ?", bookID).
			Update("number_in_stock", gorm.Expr("number_in_stock - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	s.afterIssue(&issue)
	return &issue, nil
}

// Return closes the issue and restores one copy to stock. Already-returned
// issues are left untouched.
func (s *LoanService) Return(issueID uint) (*models.Issue, error) {
	var issue models.Issue
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&issue, issueID).Error; err != nil {
			return notFoundOr(err)
		}
		if issue.ReturnedDate != nil {
			return nil
		}
		today := Today()
		if err := tx.Model(&issue).Update("returned_date", today).Error; err != nil {
			return err
		}
		issue.ReturnedDate = &today
		return tx.Model(&models.Book{}).Where("id = ?", issue.BookID).
			Update("number_in_stock", gorm.Expr("number_in_stock + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// AccrueFines get-or-creates a Fine for every open issue past due as of
// today. Amounts are fixed at creation (FineRate per overdue day) unless
// FineAccrue is set, in which case unpaid amounts are refreshed too.
// Returns the number of fines created.
func (s *LoanService) AccrueFines(today time.Time) (int, error) {
	today = DateOf(today)
	created := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var overdue []models.Issue
		if err := tx.Where("returned_date IS NULL AND due_date < ?", today).
			Find(&overdue).Error; err != nil {
			return err
		}
		for _, issue := range overdue {
			days := int(today.Sub(DateOf(issue.DueDate)).Hours() / 24)
			var fine models.Fine
			err := tx.Where("issue_id = ?", issue.ID).First(&fine).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fine = models.Fine{
					IssueID:        issue.ID,
					Amount:         float64(days) * s.FineRate,
					CalculatedDate: today,
				}
				if err := tx.Create(&fine).Error; err != nil {
					return err
				}
				created++
				continue
			}
			if err != nil {
				return err
			}
			if s.FineAccrue && !fine.Paid {
				if err := tx.Model(&fine).Update("amount", float64(days)*s.FineRate).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// PayFine settles a fine. Irreversible.
func (s *LoanService) PayFine(fineID uint) (*models.Fine, error) {
	var fine models.Fine
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&fine, fineID).Error; err != nil {
			return notFoundOr(err)
		}
		if fine.Paid {
			return nil
		}
		fine.Paid = true
		return tx.Model(&fine).Update("paid", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

// afterIssue runs the post-commit side effects of a new issue.
func (s *LoanService) afterIssue(issue *models.Issue) {
	if s.Notifier != nil {
		if err := s.Notifier.OnIssue(issue); err != nil {
			applog.Warn("issue notification failed", zap.Uint("issue", issue.ID), zap.Error(err))
		}
	}
	if s.Analytics != nil {
		if err := s.Analytics.RecordIssuance(issue.BookID, issue.IssuedDate); err != nil {
			applog.Warn("issuance tally failed", zap.Uint("book", issue.BookID), zap.Error(err))
		}
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
