package model

// QueryRequest is the body of the backend's streaming query endpoint.
type QueryRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection"`
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type OpenNotebookRequest struct {
	NotebookID string `json:"notebook_id" binding:"required"`
	Summary    string `json:"summary"`
}

type SelectSourcesRequest struct {
	FileIDs []string `json:"file_ids"`
}

// CreateNoteRequest carries the note type plus its loosely typed parameters,
// which are turned into a NoteParameters variant by ParseNoteParameters.
type CreateNoteRequest struct {
	Type       string            `json:"type" binding:"required"`
	Parameters map[string]string `json:"parameters"`
}

type FormatRequest struct {
	Text string `json:"text"`
}
