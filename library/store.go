package library

import "context"

// Collection selects which ledgers a Save call rewrites.
type Collection uint8

const (
	CollectionBooks Collection = 1 << iota
	CollectionLoans
	CollectionFines

	CollectionAll = CollectionBooks | CollectionLoans | CollectionFines
)

// Has reports whether c includes every collection in other.
func (c Collection) Has(other Collection) bool { return c&other == other }

// Store is the durable backing of the engine. Save rewrites each selected
// collection as a whole: either all of them are written or none is.
// Only fine entries with a positive amount are passed to Save.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State, which Collection) error
}

// UserStore is the part of the user directory the engine manages on behalf
// of librarians.
type UserStore interface {
	AddUser(ctx context.Context, username, password string, role Role) error
	RemoveUser(ctx context.Context, username string) error
}
