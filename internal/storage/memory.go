package storage

import (
	"sort"
	"sync"

	"notebook-client/internal/model"
)

type MemoryStorage struct {
	conversations map[string]*model.Conversation
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*model.Conversation),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) SaveConversation(conv *model.Conversation) error {
	if err := validKey(conv.NotebookID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations[conv.NotebookID] = persistable(conv)
	return nil
}

func (m *MemoryStorage) GetConversation(notebookID string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[notebookID]
	if !exists {
		return nil, ErrConversationNotFound
	}

	return conv.Clone(), nil
}

func (m *MemoryStorage) DeleteConversation(notebookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[notebookID]; !exists {
		return ErrConversationNotFound
	}

	delete(m.conversations, notebookID)
	return nil
}

func (m *MemoryStorage) ListConversations() ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	convs := make([]*model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		header := *conv
		header.Messages = nil
		convs = append(convs, &header)
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations = make(map[string]*model.Conversation)
	return nil
}

type MemoryAudioStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryAudioStore() *MemoryAudioStore {
	return &MemoryAudioStore{files: make(map[string][]byte)}
}

func (m *MemoryAudioStore) Save(noteID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[noteID] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryAudioStore) Load(noteID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[noteID]
	if !ok {
		return nil, ErrAudioNotFound
	}
	return data, nil
}

func (m *MemoryAudioStore) Delete(noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, noteID)
	return nil
}
