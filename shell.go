package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"library-lending/library"

	"golang.org/x/term"
)

// shell is the interactive text menu. It reads one command per line.
type shell struct {
	in  io.Reader
	sc  *bufio.Scanner
	out io.Writer
}

func newShell(in io.Reader, out io.Writer) *shell {
	return &shell{in: in, sc: bufio.NewScanner(in), out: out}
}

// readPassword masks input when reading from a terminal and falls back to a
// plain line otherwise.
func (sh *shell) readPassword(prompt string) (string, error) {
	fmt.Fprint(sh.out, prompt)
	if f, ok := sh.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(sh.out) // Add newline after password input
		return strings.TrimSpace(string(bytePassword)), nil
	}
	if !sh.sc.Scan() {
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(sh.sc.Text()), nil
}

// prompt prints label and returns the next trimmed line.
func (sh *shell) prompt(label string) (string, bool) {
	fmt.Fprint(sh.out, label)
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.sc.Text()), true
}

// Run logs a user in and serves menu commands until exit or end of input.
func (sh *shell) Run(ctx context.Context, mgr *library.LibraryManager) error {
	username, ok := sh.prompt("Username: ")
	if !ok {
		return nil
	}
	password, err := sh.readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	sess, err := mgr.Login(ctx, username, password)
	if err != nil {
		fmt.Fprintln(sh.out, "Invalid credentials.")
		return err
	}

	fmt.Fprintf(sh.out, "\nWelcome %s! Role: %s\n", sess.Username, sess.Role)
	sh.help()

	for {
		if ctx.Err() != nil {
			return nil
		}
		cmd, ok := sh.prompt("\n> ")
		if !ok {
			return nil
		}

		switch cmd {
		case "list", "list available":
			sh.handleListAvailable(mgr.Engine())
		case "loans", "my loans":
			sh.handleMyLoans(sess)
		case "borrow":
			sh.handleBorrow(ctx, sess)
		case "return":
			sh.handleReturn(ctx, sess)
		case "reserve":
			sh.handleReserve(ctx, sess)
		case "fine":
			sh.handleFine(sess)
		case "search":
			sh.handleSearch(sess)
		case "add book":
			sh.handleAddBook(ctx, sess)
		case "remove book":
			sh.handleRemoveBook(ctx, sess)
		case "add user":
			sh.handleAddUser(ctx, sess)
		case "remove user":
			sh.handleRemoveUser(ctx, sess)
		case "pay fine":
			sh.handlePayFine(ctx, sess)
		case "help":
			sh.help()
		case "exit":
			fmt.Fprintln(sh.out, "Goodbye!")
			return nil
		case "":
		default:
			fmt.Fprintln(sh.out, "Unknown command. Type 'help' to see the available commands.")
		}
	}
}

func (sh *shell) help() {
	fmt.Fprintln(sh.out, "Available commands:")
	fmt.Fprintln(sh.out, "  Books: list available, search, add book, remove book")
	fmt.Fprintln(sh.out, "  Circulation: my loans, borrow, return, reserve")
	fmt.Fprintln(sh.out, "  Fines: fine, pay fine")
	fmt.Fprintln(sh.out, "  Users: add user, remove user")
	fmt.Fprintln(sh.out, "  System: help, exit")
}

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	fmt.Fprintf(w, "%-15s %-30s %-25s %-20s %s\n", "ISBN", "Title", "Author", "Publisher", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 105))
	for _, b := range books {
		fmt.Fprintf(w, "%s %s\n", library.PrettyBook(b), status(b))
	}
}

func status(b library.Book) string {
	switch {
	case b.Available:
		return "Available"
	case b.Reserved:
		return "On loan, reserved"
	default:
		return "On loan"
	}
}

func (sh *shell) handleListAvailable(e *library.Engine) {
	var books []library.Book
	for b := range e.AvailableBooks() {
		books = append(books, b)
	}
	if len(books) == 0 {
		fmt.Fprintln(sh.out, "No books available.")
		return
	}
	fmt.Fprintln(sh.out, "Available Books:")
	printBooks(sh.out, books)
}

func (sh *shell) handleMyLoans(sess *library.Session) {
	loans := sess.Loans()
	if len(loans) == 0 {
		fmt.Fprintln(sh.out, "You have no borrowed books.")
		return
	}
	fmt.Fprintln(sh.out, "Your Borrowed Books:")
	for _, l := range loans {
		fmt.Fprintf(sh.out, "ISBN: %s, Borrowed on: %s (%d days)", l.ISBN, l.BorrowedAt.Format(time.DateTime), l.DaysElapsed)
		if l.ProjectedFee > 0 {
			fmt.Fprintf(sh.out, ", overdue %d days, fine so far Rs.%d", l.OverdueDays, l.ProjectedFee)
		}
		fmt.Fprintln(sh.out)
	}
}

func (sh *shell) handleBorrow(ctx context.Context, sess *library.Session) {
	isbn, ok := sh.prompt("Enter ISBN: ")
	if !ok {
		return
	}
	if _, err := sess.Borrow(ctx, isbn); err != nil {
		fmt.Fprintf(sh.out, "Cannot borrow: %v\n", err)
		return
	}
	title := isbn
	if b, err := sess.Book(isbn); err == nil {
		title = b.Title
	}
	fmt.Fprintf(sh.out, "Borrowed: %s\n", title)
}

func (sh *shell) handleReturn(ctx context.Context, sess *library.Session) {
	isbn, ok := sh.prompt("Enter ISBN: ")
	if !ok {
		return
	}
	receipt, err := sess.Return(ctx, isbn)
	if err != nil {
		fmt.Fprintf(sh.out, "Cannot return: %v\n", err)
		return
	}
	if receipt.Fine > 0 {
		fmt.Fprintf(sh.out, "Overdue by %d days. Fine added: Rs.%d\n", receipt.OverdueDays, receipt.Fine)
	}
	title := receipt.Book.Title
	if title == "" {
		title = isbn
	}
	fmt.Fprintf(sh.out, "Returned: %s\n", title)
}

func (sh *shell) handleReserve(ctx context.Context, sess *library.Session) {
	isbn, ok := sh.prompt("Enter ISBN: ")
	if !ok {
		return
	}
	_, err := sess.Reserve(ctx, isbn)
	switch {
	case errors.Is(err, library.ErrNotNeeded):
		fmt.Fprintln(sh.out, "Book is available, no need to reserve.")
	case errors.Is(err, library.ErrAlreadyReserved):
		fmt.Fprintln(sh.out, "Book already reserved.")
	case err != nil:
		fmt.Fprintf(sh.out, "Cannot reserve: %v\n", err)
	default:
		fmt.Fprintln(sh.out, "Book reserved successfully!")
	}
}

func (sh *shell) handleFine(sess *library.Session) {
	f := sess.Fine()
	fmt.Fprintf(sh.out, "Outstanding Fine: Rs. %d\n", f.Total())
	if f.Projected > 0 {
		fmt.Fprintf(sh.out, "  Rs. %d is payable now; Rs. %d accrues on books not yet returned.\n", f.Locked, f.Projected)
	}
}

func (sh *shell) handleSearch(sess *library.Session) {
	q, ok := sh.prompt("Query: ")
	if !ok {
		return
	}
	printBooks(sh.out, sess.Search(q))
}

func (sh *shell) handleAddBook(ctx context.Context, sess *library.Session) {
	var b library.Book
	fields := []struct {
		label string
		dst   *string
	}{
		{"Enter title: ", &b.Title},
		{"Enter author: ", &b.Author},
		{"Enter publisher: ", &b.Publisher},
		{"Enter ISBN: ", &b.ISBN},
	}
	for _, f := range fields {
		v, ok := sh.prompt(f.label)
		if !ok {
			return
		}
		*f.dst = v
	}
	if err := sess.AddBook(ctx, b); err != nil {
		fmt.Fprintf(sh.out, "Error adding book: %v\n", err)
		return
	}
	fmt.Fprintln(sh.out, "Book added successfully!")
}

func (sh *shell) handleRemoveBook(ctx context.Context, sess *library.Session) {
	isbn, ok := sh.prompt("Enter ISBN to remove: ")
	if !ok {
		return
	}
	b, err := sess.RemoveBook(ctx, isbn)
	if err != nil {
		fmt.Fprintf(sh.out, "Error removing book: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Book removed: %s\n", b.Title)
}

func (sh *shell) handleAddUser(ctx context.Context, sess *library.Session) {
	username, ok := sh.prompt("Enter new username: ")
	if !ok {
		return
	}
	password, err := sh.readPassword("Enter password: ")
	if err != nil {
		fmt.Fprintf(sh.out, "Error reading password: %v\n", err)
		return
	}
	roleStr, ok := sh.prompt("Enter role (Student/Faculty/Librarian): ")
	if !ok {
		return
	}
	role, err := library.ParseRole(roleStr)
	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	if err := sess.AddUser(ctx, username, password, role); err != nil {
		fmt.Fprintf(sh.out, "Error adding user: %v\n", err)
		return
	}
	fmt.Fprintln(sh.out, "User added.")
}

func (sh *shell) handleRemoveUser(ctx context.Context, sess *library.Session) {
	username, ok := sh.prompt("Enter username to remove: ")
	if !ok {
		return
	}
	if err := sess.RemoveUser(ctx, username); err != nil {
		fmt.Fprintf(sh.out, "Error removing user: %v\n", err)
		return
	}
	fmt.Fprintln(sh.out, "User removed.")
}

func (sh *shell) handlePayFine(ctx context.Context, sess *library.Session) {
	target, ok := sh.prompt("Enter the username to pay fine for: ")
	if !ok {
		return
	}
	amt, err := sess.PayFine(ctx, target)
	switch {
	case errors.Is(err, library.ErrNothingToPay):
		fmt.Fprintln(sh.out, "No outstanding fine to pay. Fines for currently borrowed books are added when they are returned.")
	case err != nil:
		fmt.Fprintf(sh.out, "Cannot settle fine: %v\n", err)
	default:
		fmt.Fprintf(sh.out, "The fine for returned books of %s was Rs.%d. Fine paid successfully!\n", target, amt)
	}
}
