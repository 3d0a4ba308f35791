package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"notebook-client/internal/model"
	"notebook-client/pkg/logger"
)

// DiskStorage keeps each conversation as two JSON files (header and
// messages) plus an index of headers. Writes go through a temp file and a
// rename so a crash never leaves a truncated file behind.
type DiskStorage struct {
	dataDir   string
	mu        sync.RWMutex
	cache     map[string]*model.Conversation
	cacheSize int
}

type conversationIndex struct {
	ID         string    `json:"id"`
	NotebookID string    `json:"notebook_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewDiskStorage(dataDir string, cacheSize int) *DiskStorage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &DiskStorage{
		dataDir:   dataDir,
		cache:     make(map[string]*model.Conversation),
		cacheSize: cacheSize,
	}
}

func (d *DiskStorage) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadConversations(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Disk storage initialized in %s", d.dataDir)
	return nil
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		filepath.Join(d.dataDir, "conversations"),
		filepath.Join(d.dataDir, "messages"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (d *DiskStorage) indexPath() string {
	return filepath.Join(d.dataDir, "conversations.json")
}

func (d *DiskStorage) headerPath(notebookID string) string {
	return filepath.Join(d.dataDir, "conversations", notebookID+".json")
}

func (d *DiskStorage) messagesPath(notebookID string) string {
	return filepath.Join(d.dataDir, "messages", notebookID+".json")
}

// loadConversations warms the cache from the index, up to cacheSize entries.
func (d *DiskStorage) loadConversations() error {
	indexes, err := d.readIndex()
	if errors.Is(err, os.ErrNotExist) {
		return writeJSONFile(d.indexPath(), []conversationIndex{})
	}
	if err != nil {
		return err
	}

	for _, index := range indexes {
		if len(d.cache) >= d.cacheSize {
			break
		}

		conv, err := d.loadConversationFromFile(index.NotebookID)
		if err != nil {
			logger.Errorf("Failed to load conversation for notebook %s: %v", index.NotebookID, err)
			continue
		}

		d.cache[index.NotebookID] = conv
	}

	return nil
}

func (d *DiskStorage) readIndex() ([]conversationIndex, error) {
	data, err := os.ReadFile(d.indexPath())
	if err != nil {
		return nil, err
	}

	var indexes []conversationIndex
	if err := json.Unmarshal(data, &indexes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return indexes, nil
}

func (d *DiskStorage) loadConversationFromFile(notebookID string) (*model.Conversation, error) {
	data, err := os.ReadFile(d.headerPath(notebookID))
	if err != nil {
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}

	messages, err := d.loadMessagesFromFile(notebookID)
	if err != nil {
		logger.Errorf("Failed to load messages for notebook %s: %v", notebookID, err)
		messages = []model.Message{}
	}

	conv.Messages = messages
	return &conv, nil
}

func (d *DiskStorage) loadMessagesFromFile(notebookID string) ([]model.Message, error) {
	data, err := os.ReadFile(d.messagesPath(notebookID))
	if errors.Is(err, os.ErrNotExist) {
		return []model.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []model.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (d *DiskStorage) SaveConversation(conv *model.Conversation) error {
	if err := validKey(conv.NotebookID); err != nil {
		return err
	}
	stored := persistable(conv)

	d.mu.Lock()
	defer d.mu.Unlock()

	header := *stored
	header.Messages = nil
	if err := writeJSONFile(d.headerPath(stored.NotebookID), header); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := writeJSONFile(d.messagesPath(stored.NotebookID), stored.Messages); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := d.updateIndex(); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[stored.NotebookID] = stored
	d.evictCache()

	return nil
}

func (d *DiskStorage) GetConversation(notebookID string) (*model.Conversation, error) {
	if err := validKey(notebookID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	if conv, exists := d.cache[notebookID]; exists {
		d.mu.RUnlock()
		return conv.Clone(), nil
	}
	d.mu.RUnlock()

	conv, err := d.loadConversationFromFile(notebookID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[notebookID] = conv
	d.evictCache()
	d.mu.Unlock()

	return conv.Clone(), nil
}

func (d *DiskStorage) DeleteConversation(notebookID string) error {
	if err := validKey(notebookID); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(d.headerPath(notebookID)); errors.Is(err, os.ErrNotExist) {
		return ErrConversationNotFound
	}

	if err := os.Remove(d.headerPath(notebookID)); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := os.Remove(d.messagesPath(notebookID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, notebookID)

	return d.updateIndex()
}

func (d *DiskStorage) ListConversations() ([]*model.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	indexes, err := d.readIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	convs := make([]*model.Conversation, 0, len(indexes))
	for _, index := range indexes {
		convs = append(convs, &model.Conversation{
			ID:         index.ID,
			NotebookID: index.NotebookID,
			Title:      index.Title,
			CreatedAt:  index.CreatedAt,
			UpdatedAt:  index.UpdatedAt,
		})
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return convs, nil
}

func (d *DiskStorage) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, dir := range []string{"conversations", "messages"} {
		path := filepath.Join(d.dataDir, dir)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("%w: %v", ErrFileOperation, err)
		}
	}

	d.cache = make(map[string]*model.Conversation)
	if err := writeJSONFile(d.indexPath(), []conversationIndex{}); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

// updateIndex rebuilds the index from the header files. Callers hold d.mu.
func (d *DiskStorage) updateIndex() error {
	files, err := os.ReadDir(filepath.Join(d.dataDir, "conversations"))
	if err != nil {
		return err
	}

	indexes := make([]conversationIndex, 0, len(files))
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		notebookID := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(d.headerPath(notebookID))
		if err != nil {
			logger.Errorf("Failed to read conversation %s for index update: %v", notebookID, err)
			continue
		}

		var index conversationIndex
		if err := json.Unmarshal(data, &index); err != nil {
			logger.Errorf("Failed to decode conversation %s for index update: %v", notebookID, err)
			continue
		}
		indexes = append(indexes, index)
	}

	return writeJSONFile(d.indexPath(), indexes)
}

func (d *DiskStorage) evictCache() {
	if len(d.cache) <= d.cacheSize {
		return
	}

	type cacheEntry struct {
		id        string
		updatedAt time.Time
	}

	entries := make([]cacheEntry, 0, len(d.cache))
	for id, conv := range d.cache {
		entries = append(entries, cacheEntry{id: id, updatedAt: conv.UpdatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})

	toEvict := len(d.cache) - d.cacheSize
	for i := 0; i < toEvict; i++ {
		delete(d.cache, entries[i].id)
	}
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]*model.Conversation)
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
