package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed durable store for the catalog, both ledgers
// and the user directory.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            isbn TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL,
            is_available INTEGER NOT NULL DEFAULT 1,
            is_reserved INTEGER NOT NULL DEFAULT 0,
            CHECK (NOT (is_available = 1 AND is_reserved = 1))
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT NOT NULL,
            isbn TEXT NOT NULL,
            borrowed_at INTEGER NOT NULL,
            UNIQUE(username, isbn)
        );`,
		`CREATE TABLE IF NOT EXISTS fines (
            username TEXT PRIMARY KEY,
            amount INTEGER NOT NULL CHECK (amount > 0)
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('Student','Faculty','Librarian'))
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Load reads every collection in its stored order.
func (d *Database) Load(ctx context.Context) (State, error) {
	st := State{Fines: map[string]int64{}}

	rows, err := d.db.QueryContext(ctx, `SELECT title,author,publisher,isbn,is_available,is_reserved FROM books ORDER BY seq`)
	if err != nil {
		return State{}, fmt.Errorf("load books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.Title, &b.Author, &b.Publisher, &b.ISBN, &b.Available, &b.Reserved); err != nil {
			return State{}, err
		}
		st.Books = append(st.Books, b)
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}

	loanRows, err := d.db.QueryContext(ctx, `SELECT username,isbn,borrowed_at FROM loans ORDER BY seq`)
	if err != nil {
		return State{}, fmt.Errorf("load loans: %w", err)
	}
	defer loanRows.Close()
	for loanRows.Next() {
		var (
			r  LoanRecord
			at int64
		)
		if err := loanRows.Scan(&r.Username, &r.ISBN, &at); err != nil {
			return State{}, err
		}
		r.BorrowedAt = time.Unix(at, 0)
		st.Loans = append(st.Loans, r)
	}
	if err := loanRows.Err(); err != nil {
		return State{}, err
	}

	fineRows, err := d.db.QueryContext(ctx, `SELECT username,amount FROM fines`)
	if err != nil {
		return State{}, fmt.Errorf("load fines: %w", err)
	}
	defer fineRows.Close()
	for fineRows.Next() {
		var (
			user string
			amt  int64
		)
		if err := fineRows.Scan(&user, &amt); err != nil {
			return State{}, err
		}
		st.Fines[user] = amt
	}
	return st, fineRows.Err()
}

// Save rewrites the selected collections in one transaction.
func (d *Database) Save(ctx context.Context, st State, which Collection) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if which.Has(CollectionBooks) {
		if err := saveBooks(ctx, tx, st.Books); err != nil {
			return fmt.Errorf("save books: %w", err)
		}
	}
	if which.Has(CollectionLoans) {
		if err := saveLoans(ctx, tx, st.Loans); err != nil {
			return fmt.Errorf("save loans: %w", err)
		}
	}
	if which.Has(CollectionFines) {
		if err := saveFines(ctx, tx, st.Fines); err != nil {
			return fmt.Errorf("save fines: %w", err)
		}
	}
	return tx.Commit()
}

func saveBooks(ctx context.Context, tx *sql.Tx, books []Book) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO books(title,author,publisher,isbn,is_available,is_reserved) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range books {
		if _, err := stmt.ExecContext(ctx, b.Title, b.Author, b.Publisher, b.ISBN, b.Available, b.Reserved); err != nil {
			return err
		}
	}
	return nil
}

func saveLoans(ctx context.Context, tx *sql.Tx, loans []LoanRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM loans`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO loans(username,isbn,borrowed_at) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range loans {
		if _, err := stmt.ExecContext(ctx, r.Username, r.ISBN, r.BorrowedAt.Unix()); err != nil {
			return err
		}
	}
	return nil
}

func saveFines(ctx context.Context, tx *sql.Tx, fines map[string]int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM fines`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fines(username,amount) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for user, amt := range fines {
		if amt <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, user, amt); err != nil {
			return err
		}
	}
	return nil
}
