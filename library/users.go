package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned by Authenticate for an unknown username or a
// wrong password. The two cases are not distinguished.
var ErrBadCredentials = errors.New("invalid credentials")

// Directory stores usernames, bcrypt password hashes and roles.
type Directory struct {
	db *sql.DB
}

// Users returns the user directory kept in the same database file.
func (d *Database) Users() *Directory { return &Directory{db: d.db} }

// UserEntry is a directory row without its password hash.
type UserEntry struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// AddUser stores a new user with a hashed password.
func (u *Directory) AddUser(ctx context.Context, username, password string, role Role) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.ContainsAny(username, " \t\n") {
		return fmt.Errorf("invalid username %q", username)
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = u.db.ExecContext(ctx, `INSERT INTO users(username,password_hash,role) VALUES(?,?,?)`, username, string(hash), string(role))
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, username)
	}
	return err
}

// RemoveUser deletes username from the directory.
func (u *Directory) RemoveUser(ctx context.Context, username string) error {
	res, err := u.db.ExecContext(ctx, `DELETE FROM users WHERE username=?`, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return nil
}

// Authenticate checks the password and returns who the user is.
func (u *Directory) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	var hash, role string
	err := u.db.QueryRowContext(ctx, `SELECT password_hash, role FROM users WHERE username=?`, username).Scan(&hash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return Principal{}, ErrBadCredentials
	}
	if err != nil {
		return Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Principal{}, ErrBadCredentials
	}
	r, err := ParseRole(role)
	if err != nil {
		return Principal{}, err
	}
	return Principal{Username: username, Role: r}, nil
}

// List returns all users ordered by name.
func (u *Directory) List(ctx context.Context) ([]UserEntry, error) {
	rows, err := u.db.QueryContext(ctx, `SELECT username, role FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserEntry
	for rows.Next() {
		var e UserEntry
		if err := rows.Scan(&e.Username, &e.Role); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of users with role.
func (u *Directory) Count(ctx context.Context, role Role) (int, error) {
	var n int
	err := u.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role=?`, string(role)).Scan(&n)
	return n, err
}
