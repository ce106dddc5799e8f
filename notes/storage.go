package notes

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateContent is returned by Insert when the content is already stored.
	ErrDuplicateContent = errors.New("note content already exists")

	// ErrNoteNotFound is returned by SelectByID when no note has the given id.
	ErrNoteNotFound = errors.New("note not found")
)

// Storage is the persistence contract the operation handlers compose.
// Implementations own no cross-request state; every call is one unit of work
// against the shared store handle. The notestore package provides the
// Postgres implementation; tests substitute an in-memory one.
type Storage interface {
	// Insert stores a new note and returns it with its generated id.
	// Fails with ErrDuplicateContent on a uniqueness violation.
	Insert(ctx context.Context, content string) (Note, error)

	// SelectAll returns all notes in insertion order.
	SelectAll(ctx context.Context) (Notes, error)

	// SelectByID returns exactly one note or ErrNoteNotFound.
	SelectByID(ctx context.Context, id int64) (Note, error)

	// DeleteAll removes all notes; succeeds on an empty table.
	DeleteAll(ctx context.Context) error

	// DeleteByID removes zero or one note; a missing id is a no-op, not an error.
	DeleteByID(ctx context.Context, id int64) error
}
