package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

const day = 24 * time.Hour

// Engine applies the lending, reservation and fine rules of each role to the
// catalog and the two ledgers it owns. All operations are serialized by a
// single mutex and every mutation is persisted before it is reported.
type Engine struct {
	mu sync.Mutex

	catalog *Catalog
	loans   *LoanLedger
	fines   *FineLedger

	store    Store
	users    UserStore
	policies map[Role]Policy
	now      func() time.Time
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mostly for backdating loans in tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithUserStore enables AddUser and RemoveUser.
func WithUserStore(u UserStore) Option { return func(e *Engine) { e.users = u } }

// WithPolicies overrides the default role table.
func WithPolicies(p map[Role]Policy) Option {
	return func(e *Engine) { e.policies = maps.Clone(p) }
}

// NewEngine loads the full state from store.
func NewEngine(ctx context.Context, store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    store,
		policies: maps.Clone(Policies),
		now:      time.Now,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	e.catalog = NewCatalog(st.Books)
	e.loans = NewLoanLedger(st.Loans)
	e.fines = NewFineLedger(st.Fines)

	e.log.Info("lending state loaded",
		slog.Int("books", len(st.Books)),
		slog.Int("loans", len(st.Loans)),
		slog.Int("fines", len(st.Fines)))
	return e, nil
}

func (e *Engine) policy(r Role) Policy { return e.policies[r] }

func (e *Engine) daysElapsed(r LoanRecord) int {
	return int(e.now().Sub(r.BorrowedAt) / day)
}

// ---------------------------------------------------------------------------
// Persistence and rollback
// ---------------------------------------------------------------------------

type checkpoint struct {
	books []Book
	loans []LoanRecord
	fines map[string]int64
}

func (e *Engine) checkpoint() checkpoint {
	return checkpoint{
		books: e.catalog.All(),
		loans: e.loans.All(),
		fines: maps.Clone(e.fines.balances),
	}
}

func (e *Engine) rollback(cp checkpoint) {
	e.catalog.books = cp.books
	e.loans.loans = cp.loans
	e.fines.balances = cp.fines
}

func (e *Engine) state() State {
	return State{
		Books: e.catalog.All(),
		Loans: e.loans.All(),
		Fines: e.fines.Outstanding(),
	}
}

// commit persists the selected collections, restoring cp if the store fails.
func (e *Engine) commit(ctx context.Context, cp checkpoint, which Collection, op string) error {
	if err := e.store.Save(ctx, e.state(), which); err != nil {
		e.rollback(cp)
		e.log.Error("persist failed, state rolled back", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Fines
// ---------------------------------------------------------------------------

func (e *Engine) fineOf(p Principal) FineSummary {
	pol := e.policy(p.Role)
	s := FineSummary{Locked: e.fines.BalanceOf(p.Username)}
	for _, r := range e.loans.ActiveLoansOf(p.Username) {
		_, fee := pol.overdueFee(e.daysElapsed(r))
		s.Projected += fee
	}
	return s
}

// FineOf returns the user's locked-in balance plus the fines projected from
// loans that are currently overdue. Nothing is stored.
func (e *Engine) FineOf(p Principal) FineSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fineOf(p)
}

// LoansOf lists the user's active loans with their projected fines.
func (e *Engine) LoansOf(p Principal) []LoanView {
	e.mu.Lock()
	defer e.mu.Unlock()

	pol := e.policy(p.Role)
	var out []LoanView
	for _, r := range e.loans.ActiveLoansOf(p.Username) {
		days := e.daysElapsed(r)
		overdue, fee := pol.overdueFee(days)
		out = append(out, LoanView{LoanRecord: r, DaysElapsed: days, OverdueDays: overdue, ProjectedFee: fee})
	}
	return out
}

// PayFine clears the locked-in balance of target. Fines still accruing on
// unreturned loans are not payable.
func (e *Engine) PayFine(ctx context.Context, actor Principal, target string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.log.With(slog.String("actor", actor.Username), slog.String("user", target))
	if !e.policy(actor.Role).CanSettleFines {
		logger.Debug("pay fine denied", slog.String("role", string(actor.Role)))
		return 0, ErrPermissionDenied
	}
	if !e.fines.Known(target) {
		return 0, fmt.Errorf("%s: %w", target, ErrNoSuchUser)
	}

	cp := e.checkpoint()
	amt, err := e.fines.Settle(target)
	if err != nil {
		return 0, err
	}
	if err := e.commit(ctx, cp, CollectionFines, "pay fine"); err != nil {
		return 0, err
	}
	logger.Info("fine settled", slog.Int64("amount", amt))
	return amt, nil
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// Borrow lends isbn to p. The checks run in a fixed order and the first one
// that fails is returned.
func (e *Engine) Borrow(ctx context.Context, p Principal, isbn string) (LoanRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.log.With(slog.String("user", p.Username), slog.String("isbn", isbn), slog.String("role", string(p.Role)))
	if err := e.canBorrow(p, isbn); err != nil {
		logger.Debug("borrow refused", slog.Any("reason", err))
		return LoanRecord{}, err
	}

	book, _ := e.catalog.Find(isbn)
	cp := e.checkpoint()
	rec := LoanRecord{Username: p.Username, ISBN: isbn, BorrowedAt: e.now().Truncate(time.Second)}
	if err := e.loans.Add(rec); err != nil {
		return LoanRecord{}, err
	}
	book.Available = false
	book.Reserved = false
	e.catalog.update(book)

	if err := e.commit(ctx, cp, CollectionBooks|CollectionLoans, "borrow"); err != nil {
		return LoanRecord{}, err
	}
	logger.Info("book borrowed")
	return rec, nil
}

func (e *Engine) canBorrow(p Principal, isbn string) error {
	pol := e.policy(p.Role)
	if !pol.CanBorrow {
		return ErrPermissionDenied
	}
	if pol.chargesFines() && e.fineOf(p).Total() > 0 {
		return ErrFineOutstanding
	}
	if pol.OverdueBlockDays > 0 {
		for _, r := range e.loans.ActiveLoansOf(p.Username) {
			if e.daysElapsed(r) > pol.OverdueBlockDays {
				return fmt.Errorf("%w: %s (more than %d days)", ErrOverdueBlock, r.ISBN, pol.OverdueBlockDays)
			}
		}
	}
	if e.loans.CountActive(p.Username) >= pol.MaxLoans {
		return fmt.Errorf("%w (%d)", ErrQuotaExceeded, pol.MaxLoans)
	}
	book, err := e.catalog.Find(isbn)
	if err != nil {
		return err
	}
	if !book.Available {
		return ErrUnavailable
	}
	return nil
}

// ReturnReceipt describes a completed return.
type ReturnReceipt struct {
	Loan        LoanRecord `json:"loan"`
	Book        Book       `json:"book"`
	OverdueDays int        `json:"overdue_days"`
	Fine        int64      `json:"fine"`
}

// Return ends p's loan of isbn. An overdue loan under a fining role turns
// its projected fine into a locked-in balance.
func (e *Engine) Return(ctx context.Context, p Principal, isbn string) (ReturnReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.log.With(slog.String("user", p.Username), slog.String("isbn", isbn))
	rec, err := e.loans.Lookup(p.Username, isbn)
	if err != nil {
		logger.Debug("return refused", slog.Any("reason", err))
		return ReturnReceipt{}, err
	}

	cp := e.checkpoint()
	receipt := ReturnReceipt{Loan: rec}
	which := CollectionBooks | CollectionLoans

	receipt.OverdueDays, receipt.Fine = e.policy(p.Role).overdueFee(e.daysElapsed(rec))
	if receipt.Fine > 0 {
		if err := e.fines.AddFine(p.Username, receipt.Fine); err != nil {
			return ReturnReceipt{}, err
		}
		which |= CollectionFines
	}

	if _, err := e.loans.RemoveFirstMatch(p.Username, isbn); err != nil {
		e.rollback(cp)
		return ReturnReceipt{}, err
	}
	// Loaded data may hold a loan whose book is gone; the loan still closes.
	if book, err := e.catalog.Find(isbn); err == nil {
		book.Available = true
		book.Reserved = false
		e.catalog.update(book)
		receipt.Book = book
	}

	if err := e.commit(ctx, cp, which, "return"); err != nil {
		return ReturnReceipt{}, err
	}
	logger.Info("book returned", slog.Int("overdue_days", receipt.OverdueDays), slog.Int64("fine", receipt.Fine))
	return receipt, nil
}

// Reserve flags an unavailable book as reserved. The flag is shared: it does
// not record who reserved the book.
func (e *Engine) Reserve(ctx context.Context, p Principal, isbn string) (Book, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger := e.log.With(slog.String("user", p.Username), slog.String("isbn", isbn))
	if !e.policy(p.Role).CanBorrow {
		return Book{}, ErrPermissionDenied
	}
	book, err := e.catalog.Find(isbn)
	if err != nil {
		return Book{}, err
	}
	switch {
	case book.Available:
		return book, ErrNotNeeded
	case book.Reserved:
		return book, ErrAlreadyReserved
	}

	cp := e.checkpoint()
	book.Reserved = true
	e.catalog.update(book)
	if err := e.commit(ctx, cp, CollectionBooks, "reserve"); err != nil {
		return Book{}, err
	}
	logger.Info("book reserved")
	return book, nil
}

// ---------------------------------------------------------------------------
// Catalog queries and management
// ---------------------------------------------------------------------------

// AvailableBooks yields the books that can be borrowed. Each iteration works
// on a copy of the catalog taken when it starts, so the caller may invoke
// other engine operations while ranging over it.
func (e *Engine) AvailableBooks() iter.Seq[Book] {
	return func(yield func(Book) bool) {
		e.mu.Lock()
		books := slices.Collect(e.catalog.ListAvailable())
		e.mu.Unlock()
		for _, b := range books {
			if !yield(b) {
				return
			}
		}
	}
}

func (e *Engine) FindBook(isbn string) (Book, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Find(isbn)
}

func (e *Engine) SearchBooks(q string) []Book {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Search(q)
}

// AddBook catalogs a new, available book.
func (e *Engine) AddBook(ctx context.Context, actor Principal, b Book) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.policy(actor.Role).CanManageCatalog {
		return ErrPermissionDenied
	}
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Title = strings.TrimSpace(b.Title)
	if b.ISBN == "" || b.Title == "" {
		return ErrInvalidBook
	}
	b.Available = true
	b.Reserved = false

	cp := e.checkpoint()
	if err := e.catalog.Add(b); err != nil {
		return err
	}
	if err := e.commit(ctx, cp, CollectionBooks, "add book"); err != nil {
		return err
	}
	e.log.Info("book added", slog.String("actor", actor.Username), slog.String("isbn", b.ISBN))
	return nil
}

// RemoveBook deletes a book that is not out on loan.
func (e *Engine) RemoveBook(ctx context.Context, actor Principal, isbn string) (Book, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.policy(actor.Role).CanManageCatalog {
		return Book{}, ErrPermissionDenied
	}
	if _, err := e.catalog.Find(isbn); err != nil {
		return Book{}, err
	}
	if r, ok := e.loans.Holder(isbn); ok {
		return Book{}, fmt.Errorf("%w to %s", ErrBookOnLoan, r.Username)
	}

	cp := e.checkpoint()
	book, err := e.catalog.Remove(isbn)
	if err != nil {
		return Book{}, err
	}
	if err := e.commit(ctx, cp, CollectionBooks, "remove book"); err != nil {
		return Book{}, err
	}
	e.log.Info("book removed", slog.String("actor", actor.Username), slog.String("isbn", isbn))
	return book, nil
}

// ---------------------------------------------------------------------------
// User management
// ---------------------------------------------------------------------------

var errNoUserStore = errors.New("user management is not configured")

func (e *Engine) AddUser(ctx context.Context, actor Principal, username, password string, role Role) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.policy(actor.Role).CanManageUsers {
		return ErrPermissionDenied
	}
	if e.users == nil {
		return errNoUserStore
	}
	if err := e.users.AddUser(ctx, username, password, role); err != nil {
		return err
	}
	e.log.Info("user added", slog.String("actor", actor.Username), slog.String("user", username), slog.String("role", string(role)))
	return nil
}

func (e *Engine) RemoveUser(ctx context.Context, actor Principal, username string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.policy(actor.Role).CanManageUsers {
		return ErrPermissionDenied
	}
	if e.users == nil {
		return errNoUserStore
	}
	if err := e.users.RemoveUser(ctx, username); err != nil {
		return err
	}
	e.log.Info("user removed", slog.String("actor", actor.Username), slog.String("user", username))
	return nil
}

// Snapshot returns a copy of the full lending state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}
