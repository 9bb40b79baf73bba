package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LibraryManager is a thin façade over the Database and the Engine, keeping
// CLI code simple.
type LibraryManager struct {
	db     *Database
	users  *Directory
	engine *Engine
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath and
// loads the lending state into a new engine.
func NewLibraryManager(ctx context.Context, dbPath string, logger *slog.Logger, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	users := db.Users()
	opts = append([]Option{WithLogger(logger), WithUserStore(users)}, opts...)
	engine, err := NewEngine(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &LibraryManager{db: db, users: users, engine: engine}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

func (lm *LibraryManager) Engine() *Engine       { return lm.engine }
func (lm *LibraryManager) Directory() *Directory { return lm.users }

// Login authenticates against the directory and opens a session.
func (lm *LibraryManager) Login(ctx context.Context, username, password string) (*Session, error) {
	p, err := lm.users.Authenticate(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, err
	}
	return &Session{Principal: p, engine: lm.engine}, nil
}

// ErrAlreadyBootstrapped is returned by Bootstrap once a librarian exists.
var ErrAlreadyBootstrapped = errors.New("a librarian account already exists")

// Bootstrap creates the first librarian, which is the only way to create a
// user without already being one.
func (lm *LibraryManager) Bootstrap(ctx context.Context, username, password string) error {
	n, err := lm.users.Count(ctx, RoleLibrarian)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrAlreadyBootstrapped
	}
	if err := lm.users.AddUser(ctx, username, password, RoleLibrarian); err != nil {
		return fmt.Errorf("create librarian: %w", err)
	}
	return nil
}

// ------------------ Session ------------------

// Session binds an authenticated principal to the engine so the command
// layer never passes roles around itself.
type Session struct {
	Principal
	engine *Engine
}

func (s *Session) Borrow(ctx context.Context, isbn string) (LoanRecord, error) {
	return s.engine.Borrow(ctx, s.Principal, isbn)
}

func (s *Session) Return(ctx context.Context, isbn string) (ReturnReceipt, error) {
	return s.engine.Return(ctx, s.Principal, isbn)
}

func (s *Session) Reserve(ctx context.Context, isbn string) (Book, error) {
	return s.engine.Reserve(ctx, s.Principal, isbn)
}

func (s *Session) Fine() FineSummary              { return s.engine.FineOf(s.Principal) }
func (s *Session) Loans() []LoanView              { return s.engine.LoansOf(s.Principal) }
func (s *Session) Search(q string) []Book         { return s.engine.SearchBooks(q) }
func (s *Session) Book(isbn string) (Book, error) { return s.engine.FindBook(isbn) }

func (s *Session) PayFine(ctx context.Context, target string) (int64, error) {
	return s.engine.PayFine(ctx, s.Principal, target)
}

func (s *Session) AddBook(ctx context.Context, b Book) error {
	return s.engine.AddBook(ctx, s.Principal, b)
}

func (s *Session) RemoveBook(ctx context.Context, isbn string) (Book, error) {
	return s.engine.RemoveBook(ctx, s.Principal, isbn)
}

func (s *Session) AddUser(ctx context.Context, username, password string, role Role) error {
	return s.engine.AddUser(ctx, s.Principal, username, password, role)
}

func (s *Session) RemoveUser(ctx context.Context, username string) error {
	return s.engine.RemoveUser(ctx, s.Principal, username)
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-15s %-30s %-25s %-20s", b.ISBN, truncate(b.Title, 30), truncate(b.Author, 25), truncate(b.Publisher, 20))
}

func truncate(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
