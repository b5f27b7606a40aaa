package services

import "errors"

// Workflow error taxonomy. Handlers match these with errors.Is and surface
// them as user-visible messages; none of them is fatal.
var (
	ErrDuplicateIssue          = errors.New("reader already holds this book")
	ErrDuplicatePendingRequest = errors.New("identical pending request exists")
	ErrLimitExceeded           = errors.New("open issue and request limit reached")
	ErrOutOfStock              = errors.New("book is out of stock")
	ErrInvalidDueDate          = errors.New("due date outside the allowed window")
	ErrOutOfRange              = errors.New("rating must be between 1 and 5")
	ErrNotFound                = errors.New("record not found")
	ErrInvalidCredentials      = errors.New("invalid credentials")
)
