package storage

import (
	"fmt"
	"strings"

	"notebook-client/internal/model"
)

// Storage persists conversation history, one conversation per notebook.
// Virtual messages are never written.
type Storage interface {
	SaveConversation(conv *model.Conversation) error
	GetConversation(notebookID string) (*model.Conversation, error)
	DeleteConversation(notebookID string) error
	// ListConversations returns conversation headers without messages,
	// most recently updated first.
	ListConversations() ([]*model.Conversation, error)
	Clear() error

	Init() error
	Close() error
}

// AudioStore keeps the binary payload of audio notes.
type AudioStore interface {
	Save(noteID string, data []byte) error
	Load(noteID string) ([]byte, error)
	Delete(noteID string) error
}

// New builds the conversation store and audio store for the configured type.
func New(storageType, dataDir string, cacheSize int) (Storage, AudioStore, error) {
	switch storageType {
	case "", "memory":
		return NewMemoryStorage(), NewMemoryAudioStore(), nil
	case "disk":
		return NewDiskStorage(dataDir, cacheSize), NewDiskAudioStore(dataDir), nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage type %q", ErrStorageInit, storageType)
	}
}

// persistable strips client-only messages before a conversation is stored.
func persistable(conv *model.Conversation) *model.Conversation {
	cp := conv.Clone()
	cp.Messages = conv.WireMessages()
	return cp
}

// validKey rejects ids that cannot safely be used as a file name.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: bad key %q", ErrInvalidData, key)
	}
	return nil
}
