// Package notes holds the note domain: the Note type, the storage contract
// the handlers depend on, the declarative contract table for the HTTP
// surface, and the operation handlers themselves.
package notes

// Note is the single resource this service manages. Content is unique
// across all notes; the store enforces it.
type Note struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Notes is an alias type for a slice of Note.
type Notes = []Note

// Wire returns the canonical map form of the note for schema serialization.
func (n Note) Wire() map[string]any {
	return map[string]any{
		"id":      n.ID,
		"content": n.Content,
	}
}

// WireNotes returns the canonical array form of a note collection.
func WireNotes(all Notes) []any {
	wire := make([]any, 0, len(all))

	for _, note := range all {
		wire = append(wire, note.Wire())
	}

	return wire
}
