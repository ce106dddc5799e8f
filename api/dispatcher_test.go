package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelab/noteservice/api"
	"github.com/notelab/noteservice/notes"
)

// memoryStorage is an in-memory notes.Storage with the same uniqueness and
// no-op-delete semantics as the Postgres store.
type memoryStorage struct {
	mu        sync.Mutex
	nextID    int64
	notes     notes.Notes
	readCalls int
	failWith  error // when set, every operation fails with this error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{nextID: 1}
}

func (m *memoryStorage) Insert(_ context.Context, content string) (notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return notes.Note{}, m.failWith
	}

	for _, existing := range m.notes {
		if existing.Content == content {
			return notes.Note{}, fmt.Errorf("%w: %q", notes.ErrDuplicateContent, content)
		}
	}

	note := notes.Note{ID: m.nextID, Content: content}
	m.nextID++
	m.notes = append(m.notes, note)

	return note, nil
}

func (m *memoryStorage) SelectAll(_ context.Context) (notes.Notes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	all := make(notes.Notes, len(m.notes))
	copy(all, m.notes)

	return all, nil
}

func (m *memoryStorage) SelectByID(_ context.Context, id int64) (notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCalls++

	if m.failWith != nil {
		return notes.Note{}, m.failWith
	}

	for _, existing := range m.notes {
		if existing.ID == id {
			return existing, nil
		}
	}

	return notes.Note{}, notes.ErrNoteNotFound
}

func (m *memoryStorage) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}

	m.notes = nil

	return nil
}

func (m *memoryStorage) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}

	for i, existing := range m.notes {
		if existing.ID == id {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			break
		}
	}

	return nil
}

func newTestRouter(t *testing.T, storage notes.Storage) http.Handler {
	t.Helper()

	table, tableErr := notes.ContractTable()
	require.NoError(t, tableErr)

	dispatcher, dispatcherErr := api.NewDispatcher(table)
	require.NoError(t, dispatcherErr)

	require.NoError(t, notes.NewHandlers(storage).Register(dispatcher))

	router, routerErr := dispatcher.Router()
	require.NoError(t, routerErr)

	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		encoded, encodeErr := json.Marshal(body)
		require.NoError(t, encodeErr)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var decoded T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))

	return decoded
}

func Test_Dispatcher_CreateNote_RoundTrip(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	created := doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": "x"})

	require.Equal(t, http.StatusCreated, created.Code)

	collection := decodeBody[[]map[string]any](t, created)
	require.Len(t, collection, 1)
	assert.Equal(t, "x", collection[0]["content"])
	assert.Equal(t, float64(1), collection[0]["id"])

	fetched := doRequest(t, router, http.MethodGet, "/notes", nil)

	require.Equal(t, http.StatusOK, fetched.Code)
	assert.JSONEq(t, created.Body.String(), fetched.Body.String())
}

func Test_Dispatcher_CreateNote_DuplicateContentFailsWith500(t *testing.T) {
	storage := newMemoryStorage()
	router := newTestRouter(t, storage)

	first := doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": "same"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": "same"})

	require.Equal(t, http.StatusInternalServerError, second.Code)

	errorBody := decodeBody[map[string]string](t, second)
	assert.Equal(t, notes.MsgErrorCreatingNote, errorBody["message"])
	assert.NotEmpty(t, errorBody["details"])

	remaining := doRequest(t, router, http.MethodGet, "/notes", nil)
	assert.Len(t, decodeBody[[]map[string]any](t, remaining), 1)
}

func Test_Dispatcher_CreateNote_RejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	response := doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": 42})

	require.Equal(t, http.StatusBadRequest, response.Code)

	errorBody := decodeBody[map[string]string](t, response)
	assert.NotEmpty(t, errorBody["message"])
	assert.NotEmpty(t, errorBody["details"])
}

func Test_Dispatcher_DeleteNote_IsIdempotent(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	response := doRequest(t, router, http.MethodDelete, "/notes/999", nil)

	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, notes.ConfirmationNoteDeleted, decodeBody[string](t, response))
}

func Test_Dispatcher_DeleteNotes_BulkClear(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": "a"})
	doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": "b"})

	cleared := doRequest(t, router, http.MethodDelete, "/notes", nil)

	require.Equal(t, http.StatusOK, cleared.Code)
	assert.Equal(t, notes.ConfirmationAllNotesDeleted, decodeBody[string](t, cleared))

	fetched := doRequest(t, router, http.MethodGet, "/notes", nil)
	assert.Empty(t, decodeBody[[]map[string]any](t, fetched))

	// Clearing an already empty table still succeeds.
	again := doRequest(t, router, http.MethodDelete, "/notes", nil)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, notes.ConfirmationAllNotesDeleted, decodeBody[string](t, again))
}

func Test_Dispatcher_GetNote_NonNumericIDRejectedBeforeStorage(t *testing.T) {
	storage := newMemoryStorage()
	router := newTestRouter(t, storage)

	response := doRequest(t, router, http.MethodGet, "/notes/abc", nil)

	require.Equal(t, http.StatusBadRequest, response.Code)
	assert.Zero(t, storage.readCalls, "storage must not be touched for an invalid path parameter")
}

func Test_Dispatcher_GetNote_ByID(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	created := doRequest(t, router, http.MethodPost, "/notes", map[string]any{"content": "a"})
	collection := decodeBody[[]map[string]any](t, created)
	require.Len(t, collection, 1)

	id := int64(collection[0]["id"].(float64))
	fetched := doRequest(t, router, http.MethodGet, fmt.Sprintf("/notes/%d", id), nil)

	require.Equal(t, http.StatusOK, fetched.Code)

	note := decodeBody[map[string]any](t, fetched)
	assert.Equal(t, "a", note["content"])
	assert.Equal(t, float64(id), note["id"])
}

func Test_Dispatcher_GetNote_MissingIDFailsWith500(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	response := doRequest(t, router, http.MethodGet, "/notes/12345", nil)

	require.Equal(t, http.StatusInternalServerError, response.Code)

	errorBody := decodeBody[map[string]string](t, response)
	assert.Equal(t, notes.MsgErrorFetchingNote, errorBody["message"])
	assert.NotEmpty(t, errorBody["details"])
}

func Test_Dispatcher_EveryFailureMatchesErrorBodyShape(t *testing.T) {
	storage := newMemoryStorage()
	storage.failWith = errors.New("store is down")
	router := newTestRouter(t, storage)

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/notes", map[string]any{"content": "x"}},
		{http.MethodGet, "/notes", nil},
		{http.MethodDelete, "/notes", nil},
		{http.MethodGet, "/notes/1", nil},
		{http.MethodDelete, "/notes/1", nil},
	}

	for _, tc := range requests {
		response := doRequest(t, router, tc.method, tc.path, tc.body)

		require.Equal(t, http.StatusInternalServerError, response.Code,
			"%s %s should fail with 500", tc.method, tc.path)

		var raw any
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &raw))

		validated, validateErr := api.ErrorBodySchema().Validate(raw)
		require.NoError(t, validateErr, "%s %s error body must match the declared schema", tc.method, tc.path)

		body := validated.(map[string]any)
		assert.NotEmpty(t, body["message"])
		assert.NotEmpty(t, body["details"])
	}
}

func Test_Dispatcher_UnmatchedRouteIs404(t *testing.T) {
	router := newTestRouter(t, newMemoryStorage())

	response := doRequest(t, router, http.MethodGet, "/unknown", nil)

	assert.Equal(t, http.StatusNotFound, response.Code)
}

func Test_Dispatcher_Register_RejectsUnknownContract(t *testing.T) {
	table, tableErr := notes.ContractTable()
	require.NoError(t, tableErr)

	dispatcher, dispatcherErr := api.NewDispatcher(table)
	require.NoError(t, dispatcherErr)

	err := dispatcher.Register("renameNote", func(context.Context, api.Request) (any, error) {
		return nil, nil
	})

	assert.ErrorIs(t, err, api.ErrUnknownContract)
}

func Test_Dispatcher_Router_RequiresAllHandlers(t *testing.T) {
	table, tableErr := notes.ContractTable()
	require.NoError(t, tableErr)

	dispatcher, dispatcherErr := api.NewDispatcher(table)
	require.NoError(t, dispatcherErr)

	_, routerErr := dispatcher.Router()

	assert.ErrorIs(t, routerErr, api.ErrHandlerNotRegistered)
}
