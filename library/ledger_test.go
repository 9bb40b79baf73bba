package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	c := NewCatalog(nil)
	require.NoError(t, c.Add(book("1")))
	require.NoError(t, c.Add(book("2")))
	assert.ErrorIs(t, c.Add(book("1")), ErrDuplicateISBN)

	b, err := c.Find("2")
	require.NoError(t, err)
	assert.Equal(t, "Title 2", b.Title)

	b.Available = false
	c.update(b)
	var avail []string
	for b := range c.ListAvailable() {
		avail = append(avail, b.ISBN)
	}
	assert.Equal(t, []string{"1"}, avail)

	_, err = c.Remove("1")
	require.NoError(t, err)
	_, err = c.Remove("1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Find("1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, c.Search("  "))
	assert.Len(t, c.Search("AUTHOR"), 1)
}

func TestLoanLedger(t *testing.T) {
	now := time.Now()
	l := NewLoanLedger(nil)
	require.NoError(t, l.Add(LoanRecord{Username: "alice", ISBN: "1", BorrowedAt: now}))
	require.NoError(t, l.Add(LoanRecord{Username: "bob", ISBN: "2", BorrowedAt: now}))
	require.NoError(t, l.Add(LoanRecord{Username: "alice", ISBN: "3", BorrowedAt: now}))
	assert.ErrorIs(t, l.Add(LoanRecord{Username: "alice", ISBN: "1", BorrowedAt: now}), ErrDuplicatePair)

	assert.Equal(t, 2, l.CountActive("alice"))
	loans := l.ActiveLoansOf("alice")
	require.Len(t, loans, 2)
	assert.Equal(t, "1", loans[0].ISBN)
	assert.Equal(t, "3", loans[1].ISBN)

	holder, ok := l.Holder("2")
	assert.True(t, ok)
	assert.Equal(t, "bob", holder.Username)

	_, err := l.RemoveFirstMatch("alice", "2")
	assert.ErrorIs(t, err, ErrNotBorrowed)
	_, err = l.RemoveFirstMatch("alice", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.CountActive("alice"))
	assert.Zero(t, l.CountActive("nobody"))
}

func TestFineLedger(t *testing.T) {
	f := NewFineLedger(map[string]int64{"bob": 120})
	assert.Zero(t, f.BalanceOf("alice"))
	assert.False(t, f.Known("alice"))

	require.NoError(t, f.AddFine("alice", 50))
	require.NoError(t, f.AddFine("alice", 20))
	assert.Error(t, f.AddFine("alice", -1))
	assert.Equal(t, int64(70), f.BalanceOf("alice"))

	amt, err := f.Settle("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(120), amt)
	assert.True(t, f.Known("bob"))

	_, err = f.Settle("bob")
	assert.ErrorIs(t, err, ErrNothingToPay)
	assert.Equal(t, map[string]int64{"alice": 70}, f.Outstanding())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" faculty ")
	require.NoError(t, err)
	assert.Equal(t, RoleFaculty, r)

	_, err = ParseRole("janitor")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
