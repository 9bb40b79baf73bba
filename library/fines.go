package library

import (
	"fmt"
	"maps"
)

// FineLedger keeps the locked-in fine balance of every user who has ever
// been charged. Settled users keep an entry with a zero balance.
type FineLedger struct {
	balances map[string]int64
}

func NewFineLedger(balances map[string]int64) *FineLedger {
	m := make(map[string]int64, len(balances))
	maps.Copy(m, balances)
	return &FineLedger{balances: m}
}

// BalanceOf returns 0 for users without an entry.
func (f *FineLedger) BalanceOf(username string) int64 { return f.balances[username] }

// Known reports whether username has an entry.
func (f *FineLedger) Known(username string) bool {
	_, ok := f.balances[username]
	return ok
}

// AddFine accumulates amount onto the user's balance.
func (f *FineLedger) AddFine(username string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative fine %d for %s", amount, username)
	}
	f.balances[username] += amount
	return nil
}

// Settle zeroes the balance and returns what was cleared.
func (f *FineLedger) Settle(username string) (int64, error) {
	amt := f.balances[username]
	if amt == 0 {
		return 0, ErrNothingToPay
	}
	f.balances[username] = 0
	return amt, nil
}

// Outstanding returns the entries with a positive balance, which is what
// gets persisted.
func (f *FineLedger) Outstanding() map[string]int64 {
	out := make(map[string]int64)
	for u, amt := range f.balances {
		if amt > 0 {
			out[u] = amt
		}
	}
	return out
}
