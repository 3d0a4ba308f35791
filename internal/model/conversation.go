package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	IsVirtual bool      `json:"is_virtual,omitempty"` // client-side only, never leaves the process
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the transcript of one notebook's chat.
type Conversation struct {
	ID         string    `json:"id"`
	NotebookID string    `json:"notebook_id"`
	Title      string    `json:"title"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to observers.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	return &cp
}

// WireMessages returns the messages that may leave the process, i.e. all
// non-virtual ones.
func (c *Conversation) WireMessages() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.IsVirtual {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Last returns the trailing message, or nil for an empty conversation.
func (c *Conversation) Last() *Message {
	if c == nil || len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// DefaultTitle is the title of a conversation that has not received a user message yet.
const DefaultTitle = "New Chat"

// TitleFromMessage derives a conversation title from the first user message.
func TitleFromMessage(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

// StreamChunk carries the cumulative assistant text received so far.
type StreamChunk struct {
	Content    string `json:"content"`
	IsComplete bool   `json:"is_complete"`
}

// CitationTarget is a resolved source chunk behind an inline citation.
type CitationTarget struct {
	SourceID string `json:"source_id"`
	FileID   string `json:"file_id"`
	FileText string `json:"file_text"`
	Offset   int64  `json:"offset"`
	Excerpt  string `json:"excerpt"`
}
