package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/library"
)

type memStore struct{ st library.State }

func (m *memStore) Load(context.Context) (library.State, error) { return m.st, nil }

func (m *memStore) Save(_ context.Context, st library.State, _ library.Collection) error {
	m.st = st
	return nil
}

func TestImportBooks(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	e, err := library.NewEngine(ctx, store)
	require.NoError(t, err)

	input := strings.Join([]string{
		"The Pragmatic Programmer,Andrew Hunt,Addison-Wesley,111,1,0",
		"Clean Code,Robert Martin,Prentice Hall,222,0,1",
		"Duplicate,Nobody,Nowhere,111,1,0",
		"too,short",
	}, "\n")

	librarian := library.Principal{Username: "admin", Role: library.RoleLibrarian}
	res, err := importBooks(ctx, e, librarian, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, result{imported: 2, duplicates: 1, errors: 1}, res)

	b, err := e.FindBook("222")
	require.NoError(t, err)
	assert.True(t, b.Available)
	assert.False(t, b.Reserved)
	assert.Len(t, store.st.Books, 2)
}

func TestImportBooksRequiresLibrarian(t *testing.T) {
	ctx := context.Background()
	e, err := library.NewEngine(ctx, &memStore{})
	require.NoError(t, err)

	student := library.Principal{Username: "alice", Role: library.RoleStudent}
	res, err := importBooks(ctx, e, student, strings.NewReader("T,A,P,111\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.errors)
	assert.Zero(t, res.imported)
}
