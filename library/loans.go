package library

import (
	"fmt"
	"slices"
)

// LoanLedger is the set of active loans, kept in borrow order.
type LoanLedger struct {
	loans []LoanRecord
}

func NewLoanLedger(loans []LoanRecord) *LoanLedger {
	return &LoanLedger{loans: slices.Clone(loans)}
}

// ActiveLoansOf returns the loans held by username, first borrowed first.
func (l *LoanLedger) ActiveLoansOf(username string) []LoanRecord {
	var out []LoanRecord
	for _, r := range l.loans {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out
}

func (l *LoanLedger) CountActive(username string) int {
	n := 0
	for _, r := range l.loans {
		if r.Username == username {
			n++
		}
	}
	return n
}

// Holder returns the loan on isbn, if any.
func (l *LoanLedger) Holder(isbn string) (LoanRecord, bool) {
	i := slices.IndexFunc(l.loans, func(r LoanRecord) bool { return r.ISBN == isbn })
	if i < 0 {
		return LoanRecord{}, false
	}
	return l.loans[i], true
}

func (l *LoanLedger) Add(r LoanRecord) error {
	if l.find(r.Username, r.ISBN) >= 0 {
		return fmt.Errorf("%w: %s/%s", ErrDuplicatePair, r.Username, r.ISBN)
	}
	l.loans = append(l.loans, r)
	return nil
}

// RemoveFirstMatch deletes the loan of isbn to username and returns it.
func (l *LoanLedger) RemoveFirstMatch(username, isbn string) (LoanRecord, error) {
	i := l.find(username, isbn)
	if i < 0 {
		return LoanRecord{}, ErrNotBorrowed
	}
	r := l.loans[i]
	l.loans = slices.Delete(l.loans, i, i+1)
	return r, nil
}

// Lookup returns the loan of isbn to username.
func (l *LoanLedger) Lookup(username, isbn string) (LoanRecord, error) {
	i := l.find(username, isbn)
	if i < 0 {
		return LoanRecord{}, ErrNotBorrowed
	}
	return l.loans[i], nil
}

func (l *LoanLedger) find(username, isbn string) int {
	return slices.IndexFunc(l.loans, func(r LoanRecord) bool {
		return r.Username == username && r.ISBN == isbn
	})
}

func (l *LoanLedger) All() []LoanRecord { return slices.Clone(l.loans) }
