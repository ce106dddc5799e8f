package notes

import (
	"net/http"

	"github.com/notelab/noteservice/api"
	"github.com/notelab/noteservice/contract"
	"github.com/notelab/noteservice/schema"
)

// Operation names, unique within the contract table.
const (
	ContractCreateNote  = "createNote"
	ContractGetNotes    = "getNotes"
	ContractDeleteNotes = "deleteNotes"
	ContractGetNote     = "getNote"
	ContractDeleteNote  = "deleteNote"
)

// NoteSchema returns the descriptor for a single note payload.
func NoteSchema() schema.Descriptor {
	return schema.Object(
		schema.F("id", schema.Int()),
		schema.F("content", schema.String()),
	)
}

// NotesSchema returns the descriptor for a note collection payload.
func NotesSchema() schema.Descriptor {
	return schema.ArrayOf(NoteSchema())
}

// createNoteRequestSchema is the body shape for createNote.
func createNoteRequestSchema() schema.Descriptor {
	return schema.Object(
		schema.F("content", schema.String()),
	)
}

// notePathParams declares the :id path parameter, validated as a
// numeric string before any handler runs.
func notePathParams() map[string]schema.Descriptor {
	return map[string]schema.Descriptor{
		"id": schema.IntFromString(),
	}
}

// serverFailure declares the uniform 500 error response every contract carries.
func serverFailure() map[int]schema.Descriptor {
	return map[int]schema.Descriptor{
		http.StatusInternalServerError: api.ErrorBodySchema(),
	}
}

// ContractTable builds the fixed, read-only table of the five note contracts.
func ContractTable() (*contract.Table, error) {
	return contract.NewTable(
		contract.Contract{
			Name:           ContractCreateNote,
			Method:         http.MethodPost,
			Path:           "/notes",
			RequestBody:    createNoteRequestSchema(),
			ResponseBody:   NotesSchema(),
			ResponseStatus: http.StatusCreated,
			ErrorResponses: serverFailure(),
		},
		contract.Contract{
			Name:           ContractGetNotes,
			Method:         http.MethodGet,
			Path:           "/notes",
			ResponseBody:   NotesSchema(),
			ResponseStatus: http.StatusOK,
			ErrorResponses: serverFailure(),
		},
		contract.Contract{
			Name:           ContractDeleteNotes,
			Method:         http.MethodDelete,
			Path:           "/notes",
			ResponseBody:   schema.String(),
			ResponseStatus: http.StatusOK,
			ErrorResponses: serverFailure(),
		},
		contract.Contract{
			Name:           ContractGetNote,
			Method:         http.MethodGet,
			Path:           "/notes/:id",
			PathParams:     notePathParams(),
			ResponseBody:   NoteSchema(),
			ResponseStatus: http.StatusOK,
			ErrorResponses: serverFailure(),
		},
		contract.Contract{
			Name:           ContractDeleteNote,
			Method:         http.MethodDelete,
			Path:           "/notes/:id",
			PathParams:     notePathParams(),
			ResponseBody:   schema.String(),
			ResponseStatus: http.StatusOK,
			ErrorResponses: serverFailure(),
		},
	)
}
