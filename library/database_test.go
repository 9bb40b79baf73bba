package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseSaveLoad(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	st, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.Books)
	assert.Empty(t, st.Loans)
	assert.Empty(t, st.Fines)

	borrowed := time.Unix(1_700_000_000, 0)
	want := State{
		Books: []Book{
			{Title: "B", Author: "A", Publisher: "P", ISBN: "222", Available: false, Reserved: true},
			{Title: "A", Author: "A", Publisher: "P", ISBN: "111", Available: true},
		},
		Loans: []LoanRecord{
			{Username: "bob", ISBN: "222", BorrowedAt: borrowed},
			{Username: "alice", ISBN: "111", BorrowedAt: borrowed.Add(time.Hour)},
		},
		Fines: map[string]int64{"alice": 50, "settled": 0},
	}
	require.NoError(t, db.Save(ctx, want, CollectionAll))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Books, got.Books, "order must be preserved")
	require.Len(t, got.Loans, 2)
	assert.Equal(t, "bob", got.Loans[0].Username)
	assert.True(t, got.Loans[1].BorrowedAt.Equal(borrowed.Add(time.Hour)))
	assert.Equal(t, map[string]int64{"alice": 50}, got.Fines, "zero balances are not persisted")
}

func TestDatabaseSaveSelectedCollections(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)

	require.NoError(t, db.Save(ctx, State{Books: []Book{book("1")}, Fines: map[string]int64{"a": 10}}, CollectionAll))
	require.NoError(t, db.Save(ctx, State{Books: []Book{book("2")}}, CollectionBooks))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "2", got.Books[0].ISBN)
	assert.Equal(t, int64(10), got.Fines["a"])
}

func TestDatabaseSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	require.NoError(t, db.Save(ctx, State{Books: []Book{book("1")}}, CollectionAll))

	bad := State{
		Books: []Book{{ISBN: "9", Title: "T", Available: true, Reserved: true}},
		Loans: []LoanRecord{{Username: "x", ISBN: "9", BorrowedAt: time.Now()}},
	}
	assert.Error(t, db.Save(ctx, bad, CollectionBooks|CollectionLoans))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Books, 1)
	assert.Equal(t, "1", got.Books[0].ISBN)
	assert.Empty(t, got.Loans)
}

func TestDatabaseReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib.db")
	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Save(ctx, State{Books: []Book{book("1")}}, CollectionBooks))
	require.NoError(t, db.Close())

	db, err = NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Books, 1)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	users := tempDB(t).Users()

	require.NoError(t, users.AddUser(ctx, "alice", "secret", RoleStudent))
	assert.ErrorIs(t, users.AddUser(ctx, "alice", "other", RoleFaculty), ErrDuplicateUser)
	assert.ErrorIs(t, users.AddUser(ctx, "bob", "pw", Role("Janitor")), ErrInvalidRole)
	assert.Error(t, users.AddUser(ctx, "bob", "  ", RoleStudent))
	assert.Error(t, users.AddUser(ctx, "two words", "pw", RoleStudent))

	p, err := users.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, Principal{Username: "alice", Role: RoleStudent}, p)

	_, err = users.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = users.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []UserEntry{{Username: "alice", Role: RoleStudent}}, list)

	require.NoError(t, users.RemoveUser(ctx, "alice"))
	assert.ErrorIs(t, users.RemoveUser(ctx, "alice"), ErrNotFound)
}
