package model

import "time"

type ConversationResponse struct {
	ConversationID string    `json:"conversation_id"`
	NotebookID     string    `json:"notebook_id"`
	Title          string    `json:"title"`
	Messages       []Message `json:"messages"`
	Generating     bool      `json:"generating"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewConversationResponse builds the gateway view of a conversation snapshot.
func NewConversationResponse(conv *Conversation, generating bool) ConversationResponse {
	if conv == nil {
		return ConversationResponse{Messages: []Message{}, Generating: generating}
	}
	return ConversationResponse{
		ConversationID: conv.ID,
		NotebookID:     conv.NotebookID,
		Title:          conv.Title,
		Messages:       conv.Messages,
		Generating:     generating,
		UpdatedAt:      conv.UpdatedAt,
	}
}

type CreateNoteResponse struct {
	ID string `json:"id"`
}

type NotesResponse struct {
	Notes []NoteArtifact `json:"notes"`
}

// NoteResponse is a note plus whether it is still being polled.
type NoteResponse struct {
	NoteArtifact
	Polling bool `json:"polling"`
}

type HistoryResponse struct {
	Conversations []*Conversation `json:"conversations"`
}
