package library

import "errors"

// Outcomes reported by catalog, ledger and engine operations. None of them
// leave any state modified.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateISBN    = errors.New("a book with this ISBN already exists")
	ErrDuplicatePair    = errors.New("user already has this book on loan")
	ErrDuplicateUser    = errors.New("username already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrQuotaExceeded    = errors.New("borrow limit reached")
	ErrFineOutstanding  = errors.New("cannot borrow until all fines are cleared and overdue books are returned")
	ErrOverdueBlock     = errors.New("an overdue book must be returned first")
	ErrUnavailable      = errors.New("book is not available")
	ErrNotBorrowed      = errors.New("you haven't borrowed this book")
	ErrBookOnLoan       = errors.New("book is currently on loan")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidBook      = errors.New("book needs a title and an ISBN")

	// Reservation no-ops.
	ErrAlreadyReserved = errors.New("book already reserved")
	ErrNotNeeded       = errors.New("book is available, no need to reserve")

	// Fine settlement no-ops.
	ErrNoSuchUser   = errors.New("no fine record for this user")
	ErrNothingToPay = errors.New("no outstanding fine to pay")
)

// ErrPersistence wraps every failure of the durable store. When an
// operation returns it, the in-memory state has been rolled back.
var ErrPersistence = errors.New("persistence failure")
