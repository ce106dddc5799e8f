package notes

import (
	"context"

	"github.com/notelab/noteservice/api"
)

// Operation-specific messages attached to every underlying failure before it
// reaches the error mapper.
const (
	MsgErrorCreatingNote  = "Error creating note"
	MsgErrorFetchingNotes = "Error fetching notes"
	MsgErrorDeletingNotes = "Error deleting notes"
	MsgErrorFetchingNote  = "Error fetching note"
	MsgErrorDeletingNote  = "Error deleting note"
)

// Fixed confirmation strings returned by the delete operations.
const (
	ConfirmationAllNotesDeleted = "All notes deleted"
	ConfirmationNoteDeleted     = "Note deleted"
)

// Handlers binds the five note operations to a Storage implementation.
// Handlers are stateless and safe to run concurrently; each invocation opens
// its own unit of work against the store.
type Handlers struct {
	storage Storage
}

// NewHandlers creates the operation handlers over the given storage.
func NewHandlers(storage Storage) Handlers {
	return Handlers{storage: storage}
}

// Register binds every contract in the table to its handler.
func (h Handlers) Register(dispatcher *api.Dispatcher) error {
	bindings := map[string]api.HandlerFunc{
		ContractCreateNote:  h.CreateNote,
		ContractGetNotes:    h.GetNotes,
		ContractDeleteNotes: h.DeleteNotes,
		ContractGetNote:     h.GetNote,
		ContractDeleteNote:  h.DeleteNote,
	}

	for name, handler := range bindings {
		if err := dispatcher.Register(name, handler); err != nil {
			return err
		}
	}

	return nil
}

// CreateNote inserts the note and returns the full updated collection, not
// just the inserted row: callers always receive current state after mutation.
func (h Handlers) CreateNote(ctx context.Context, req api.Request) (any, error) {
	// The dispatcher validated the body against the contract schema.
	content := req.Body.(map[string]any)["content"].(string)

	if _, insertErr := h.storage.Insert(ctx, content); insertErr != nil {
		return nil, api.Fail(MsgErrorCreatingNote, insertErr)
	}

	all, selectErr := h.storage.SelectAll(ctx)
	if selectErr != nil {
		return nil, api.Fail(MsgErrorCreatingNote, selectErr)
	}

	return WireNotes(all), nil
}

// GetNotes returns the full note collection.
func (h Handlers) GetNotes(ctx context.Context, _ api.Request) (any, error) {
	all, selectErr := h.storage.SelectAll(ctx)
	if selectErr != nil {
		return nil, api.Fail(MsgErrorFetchingNotes, selectErr)
	}

	return WireNotes(all), nil
}

// DeleteNotes removes every note and returns the fixed confirmation.
func (h Handlers) DeleteNotes(ctx context.Context, _ api.Request) (any, error) {
	if deleteErr := h.storage.DeleteAll(ctx); deleteErr != nil {
		return nil, api.Fail(MsgErrorDeletingNotes, deleteErr)
	}

	return ConfirmationAllNotesDeleted, nil
}

// GetNote returns the single note with the requested id. A missing note
// surfaces through the same failure path as any other store error.
func (h Handlers) GetNote(ctx context.Context, req api.Request) (any, error) {
	id, _ := req.PathInt("id")

	note, selectErr := h.storage.SelectByID(ctx, id)
	if selectErr != nil {
		return nil, api.Fail(MsgErrorFetchingNote, selectErr)
	}

	return note.Wire(), nil
}

// DeleteNote removes the note with the requested id. Deleting a nonexistent
// id is a no-op and still confirms.
func (h Handlers) DeleteNote(ctx context.Context, req api.Request) (any, error) {
	id, _ := req.PathInt("id")

	if deleteErr := h.storage.DeleteByID(ctx, id); deleteErr != nil {
		return nil, api.Fail(MsgErrorDeletingNote, deleteErr)
	}

	return ConfirmationNoteDeleted, nil
}
