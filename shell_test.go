package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

func newTestManager(t *testing.T) *library.LibraryManager {
	t.Helper()
	mgr, err := library.NewLibraryManager(context.Background(), filepath.Join(t.TempDir(), "lib.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	require.NoError(t, mgr.Bootstrap(context.Background(), "admin", "pw"))
	return mgr
}

// runScript logs in and feeds the given menu lines to a shell.
func runScript(t *testing.T, mgr *library.LibraryManager, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	sh := newShell(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, sh.Run(context.Background(), mgr))
	return out.String()
}

func TestShellLibrarianAndStudentSession(t *testing.T) {
	mgr := newTestManager(t)

	out := runScript(t, mgr,
		"admin", "pw",
		"add book", "The Go Programming Language", "Donovan", "Addison-Wesley", "111",
		"add book", "Duplicate", "X", "Y", "111",
		"add user", "alice", "secret", "student",
		"borrow", "111",
		"exit",
	)
	assert.Contains(t, out, "Welcome admin! Role: Librarian")
	assert.Contains(t, out, "Book added successfully!")
	assert.Contains(t, out, "already exists")
	assert.Contains(t, out, "User added.")
	assert.Contains(t, out, "Cannot borrow: permission denied")
	assert.Contains(t, out, "Goodbye!")

	out = runScript(t, mgr,
		"alice", "secret",
		"list available",
		"borrow", "111",
		"my loans",
		"reserve", "111",
		"reserve", "111",
		"fine",
		"dance",
		"return", "111",
		"return", "111",
	)
	assert.Contains(t, out, "The Go Programming Language")
	assert.Contains(t, out, "Borrowed: The Go Programming Language")
	assert.Contains(t, out, "ISBN: 111, Borrowed on:")
	assert.Contains(t, out, "Book reserved successfully!")
	assert.Contains(t, out, "Book already reserved.")
	assert.Contains(t, out, "Outstanding Fine: Rs. 0")
	assert.Contains(t, out, "Unknown command")
	assert.Contains(t, out, "Returned: The Go Programming Language")
	assert.Contains(t, out, "Cannot return: you haven't borrowed this book")
}

func TestShellRejectsBadLogin(t *testing.T) {
	mgr := newTestManager(t)
	var out bytes.Buffer
	sh := newShell(strings.NewReader("admin\nwrong\n"), &out)
	err := sh.Run(context.Background(), mgr)
	assert.ErrorIs(t, err, library.ErrBadCredentials)
	assert.Contains(t, out.String(), "Invalid credentials.")
}

func TestShellPayFine(t *testing.T) {
	mgr := newTestManager(t)
	out := runScript(t, mgr, "admin", "pw", "pay fine", "ghost", "fine")
	assert.Contains(t, out, "Cannot settle fine: ghost: no fine record for this user")
	assert.Contains(t, out, "Outstanding Fine: Rs. 0")
}
