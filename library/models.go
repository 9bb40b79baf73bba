package library

import "time"

// Book represents catalog metadata and the current lending flags of a book.
// A book is never available and reserved at the same time: reservations only
// apply to books that are out on loan.
type Book struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	ISBN      string `json:"isbn"`
	Available bool   `json:"available"`
	Reserved  bool   `json:"reserved"`
}

// LoanRecord is one active loan of a book to a user.
type LoanRecord struct {
	Username   string    `json:"username"`
	ISBN       string    `json:"isbn"`
	BorrowedAt time.Time `json:"borrowed_at"`
}

// Principal is an authenticated user as seen by the engine.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// State is the complete lending state for persistence.
type State struct {
	Books []Book           `json:"books"`
	Loans []LoanRecord     `json:"loans"`
	Fines map[string]int64 `json:"fines"`
}

// LoanView is a loan annotated with its elapsed days and projected fine.
type LoanView struct {
	LoanRecord
	DaysElapsed  int   `json:"days_elapsed"`
	OverdueDays  int   `json:"overdue_days"`
	ProjectedFee int64 `json:"projected_fee"`
}

// FineSummary splits a user's fine into its locked-in and projected parts.
type FineSummary struct {
	Locked    int64 `json:"locked"`
	Projected int64 `json:"projected"`
}

// Total is the amount that blocks a student from borrowing.
func (f FineSummary) Total() int64 { return f.Locked + f.Projected }
