package notes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelab/noteservice/api"
	"github.com/notelab/noteservice/notes"
)

// mockStorage implements notes.Storage with canned results per operation.
type mockStorage struct {
	insertNote  notes.Note
	insertErr   error
	insertCalls int

	selectAllNotes notes.Notes
	selectAllErr   error

	selectByIDNote notes.Note
	selectByIDErr  error

	deleteAllErr  error
	deleteByIDErr error
	deletedIDs    []int64
}

func (m *mockStorage) Insert(_ context.Context, _ string) (notes.Note, error) {
	m.insertCalls++
	return m.insertNote, m.insertErr
}

func (m *mockStorage) SelectAll(_ context.Context) (notes.Notes, error) {
	return m.selectAllNotes, m.selectAllErr
}

func (m *mockStorage) SelectByID(_ context.Context, _ int64) (notes.Note, error) {
	return m.selectByIDNote, m.selectByIDErr
}

func (m *mockStorage) DeleteAll(_ context.Context) error {
	return m.deleteAllErr
}

func (m *mockStorage) DeleteByID(_ context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return m.deleteByIDErr
}

func createRequest(content string) api.Request {
	return api.Request{Body: map[string]any{"content": content}}
}

func pathRequest(id int64) api.Request {
	return api.Request{Path: map[string]any{"id": id}}
}

func Test_CreateNote_ReturnsFullCollectionAfterInsert(t *testing.T) {
	storage := &mockStorage{
		insertNote:     notes.Note{ID: 2, Content: "new"},
		selectAllNotes: notes.Notes{{ID: 1, Content: "old"}, {ID: 2, Content: "new"}},
	}
	handlers := notes.NewHandlers(storage)

	result, err := handlers.CreateNote(context.Background(), createRequest("new"))

	require.NoError(t, err)
	assert.Equal(t, 1, storage.insertCalls)
	assert.Equal(t, []any{
		map[string]any{"id": int64(1), "content": "old"},
		map[string]any{"id": int64(2), "content": "new"},
	}, result)
}

func Test_CreateNote_RelabelsInsertFailure(t *testing.T) {
	storeErr := errors.New("uniqueness violated")
	handlers := notes.NewHandlers(&mockStorage{insertErr: storeErr})

	_, err := handlers.CreateNote(context.Background(), createRequest("dup"))

	require.Error(t, err)

	var failure *api.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, notes.MsgErrorCreatingNote, failure.Message)
	assert.ErrorIs(t, err, storeErr)
}

func Test_GetNotes_ReturnsCollection(t *testing.T) {
	handlers := notes.NewHandlers(&mockStorage{
		selectAllNotes: notes.Notes{{ID: 1, Content: "a"}},
	})

	result, err := handlers.GetNotes(context.Background(), api.Request{})

	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"id": int64(1), "content": "a"}}, result)
}

func Test_GetNotes_ReturnsEmptyCollection(t *testing.T) {
	handlers := notes.NewHandlers(&mockStorage{selectAllNotes: notes.Notes{}})

	result, err := handlers.GetNotes(context.Background(), api.Request{})

	require.NoError(t, err)
	assert.Equal(t, []any{}, result)
}

func Test_DeleteNotes_ReturnsConfirmation(t *testing.T) {
	handlers := notes.NewHandlers(&mockStorage{})

	result, err := handlers.DeleteNotes(context.Background(), api.Request{})

	require.NoError(t, err)
	assert.Equal(t, notes.ConfirmationAllNotesDeleted, result)
}

func Test_DeleteNotes_RelabelsStoreFailure(t *testing.T) {
	handlers := notes.NewHandlers(&mockStorage{deleteAllErr: errors.New("connection lost")})

	_, err := handlers.DeleteNotes(context.Background(), api.Request{})

	var failure *api.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, notes.MsgErrorDeletingNotes, failure.Message)
}

func Test_GetNote_ReturnsSingleNote(t *testing.T) {
	handlers := notes.NewHandlers(&mockStorage{
		selectByIDNote: notes.Note{ID: 7, Content: "seven"},
	})

	result, err := handlers.GetNote(context.Background(), pathRequest(7))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(7), "content": "seven"}, result)
}

func Test_GetNote_MissingNoteSurfacesAsFailure(t *testing.T) {
	handlers := notes.NewHandlers(&mockStorage{selectByIDErr: notes.ErrNoteNotFound})

	_, err := handlers.GetNote(context.Background(), pathRequest(999))

	var failure *api.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, notes.MsgErrorFetchingNote, failure.Message)
	assert.ErrorIs(t, err, notes.ErrNoteNotFound)
}

func Test_DeleteNote_ConfirmsForNonexistentID(t *testing.T) {
	storage := &mockStorage{}
	handlers := notes.NewHandlers(storage)

	result, err := handlers.DeleteNote(context.Background(), pathRequest(42))

	require.NoError(t, err)
	assert.Equal(t, notes.ConfirmationNoteDeleted, result)
	assert.Equal(t, []int64{42}, storage.deletedIDs)
}

func Test_Register_BindsAllContracts(t *testing.T) {
	table, tableErr := notes.ContractTable()
	require.NoError(t, tableErr)

	dispatcher, dispatcherErr := api.NewDispatcher(table)
	require.NoError(t, dispatcherErr)

	registerErr := notes.NewHandlers(&mockStorage{}).Register(dispatcher)
	require.NoError(t, registerErr)

	_, routerErr := dispatcher.Router()
	assert.NoError(t, routerErr)
}

func Test_ContractTable_DeclaresFiveContracts(t *testing.T) {
	table, err := notes.ContractTable()

	require.NoError(t, err)
	assert.Equal(t, 5, table.Len())

	for _, name := range []string{
		notes.ContractCreateNote,
		notes.ContractGetNotes,
		notes.ContractDeleteNotes,
		notes.ContractGetNote,
		notes.ContractDeleteNote,
	} {
		_, found := table.ByName(name)
		assert.True(t, found, "contract %s should be registered", name)
	}
}
