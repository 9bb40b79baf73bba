package library

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Catalog holds the book records in insertion order. It is not safe for
// concurrent use; the Engine serializes access.
type Catalog struct {
	books []Book
}

// NewCatalog builds a catalog from previously persisted records.
func NewCatalog(books []Book) *Catalog {
	return &Catalog{books: slices.Clone(books)}
}

func (c *Catalog) index(isbn string) int {
	return slices.IndexFunc(c.books, func(b Book) bool { return b.ISBN == isbn })
}

// Add appends b. The ISBN must not be in the catalog yet.
func (c *Catalog) Add(b Book) error {
	if c.index(b.ISBN) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateISBN, b.ISBN)
	}
	c.books = append(c.books, b)
	return nil
}

// Remove deletes the record with the given ISBN and returns it.
func (c *Catalog) Remove(isbn string) (Book, error) {
	i := c.index(isbn)
	if i < 0 {
		return Book{}, fmt.Errorf("book %s: %w", isbn, ErrNotFound)
	}
	b := c.books[i]
	c.books = slices.Delete(c.books, i, i+1)
	return b, nil
}

// Find returns a copy of the record with the given ISBN.
func (c *Catalog) Find(isbn string) (Book, error) {
	i := c.index(isbn)
	if i < 0 {
		return Book{}, fmt.Errorf("book %s: %w", isbn, ErrNotFound)
	}
	return c.books[i], nil
}

// update replaces the stored record that has b's ISBN.
func (c *Catalog) update(b Book) {
	if i := c.index(b.ISBN); i >= 0 {
		c.books[i] = b
	}
}

// ListAvailable yields the books that can be borrowed right now. Every call
// to the returned sequence walks the catalog again.
func (c *Catalog) ListAvailable() iter.Seq[Book] {
	return func(yield func(Book) bool) {
		for _, b := range c.books {
			if b.Available && !yield(b) {
				return
			}
		}
	}
}

// Search matches q case-insensitively against title, author and ISBN.
func (c *Catalog) Search(q string) []Book {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []Book{}
	}
	var out []Book
	for _, b := range c.books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.ISBN), q) {
			out = append(out, b)
		}
	}
	return out
}

// All returns a copy of every record.
func (c *Catalog) All() []Book { return slices.Clone(c.books) }
