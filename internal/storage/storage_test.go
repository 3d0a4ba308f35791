package storage

import (
	"errors"
	"testing"
	"time"

	"notebook-client/internal/model"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	disk := NewDiskStorage(t.TempDir(), 2)
	if err := disk.Init(); err != nil {
		t.Fatalf("disk Init: %v", err)
	}
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"disk":   disk,
	}
}

func sampleConversation(notebookID string, updated time.Time) *model.Conversation {
	return &model.Conversation{
		ID:         "conv-" + notebookID,
		NotebookID: notebookID,
		Title:      "Question",
		Messages: []model.Message{
			{ID: "banner", Role: model.RoleAssistant, Content: "Notebook summary", IsVirtual: true},
			{ID: "u1", Role: model.RoleUser, Content: "What is X?"},
			{ID: "a1", Role: model.RoleAssistant, Content: "X is a thing"},
		},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestSaveDropsVirtualMessages(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			conv := sampleConversation("1", time.Now())
			if err := store.SaveConversation(conv); err != nil {
				t.Fatalf("SaveConversation: %v", err)
			}

			got, err := store.GetConversation("1")
			if err != nil {
				t.Fatalf("GetConversation: %v", err)
			}
			if len(got.Messages) != 2 {
				t.Fatalf("messages = %+v, want 2 non-virtual", got.Messages)
			}
			for _, msg := range got.Messages {
				if msg.IsVirtual {
					t.Fatalf("virtual message persisted: %+v", msg)
				}
			}
			if len(conv.Messages) != 3 {
				t.Fatal("saving must not modify the caller's conversation")
			}
		})
	}
}

func TestListDeleteAndClear(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, id := range []string{"a", "b", "c"} {
				if err := store.SaveConversation(sampleConversation(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatalf("save %s: %v", id, err)
				}
			}

			list, err := store.ListConversations()
			if err != nil {
				t.Fatalf("ListConversations: %v", err)
			}
			if len(list) != 3 || list[0].NotebookID != "c" || list[2].NotebookID != "a" {
				t.Fatalf("unexpected order: %+v", list)
			}
			if list[0].Messages != nil {
				t.Fatal("list entries must not carry messages")
			}

			if err := store.DeleteConversation("b"); err != nil {
				t.Fatalf("DeleteConversation: %v", err)
			}
			if _, err := store.GetConversation("b"); !errors.Is(err, ErrConversationNotFound) {
				t.Fatalf("expected ErrConversationNotFound, got %v", err)
			}
			if err := store.DeleteConversation("b"); !errors.Is(err, ErrConversationNotFound) {
				t.Fatalf("second delete: %v", err)
			}

			if err := store.Clear(); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			list, _ = store.ListConversations()
			if len(list) != 0 {
				t.Fatalf("expected empty list after Clear, got %d", len(list))
			}
		})
	}
}

func TestDiskStorageSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	first := NewDiskStorage(dir, 10)
	if err := first.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := first.SaveConversation(sampleConversation("42", time.Now())); err != nil {
		t.Fatalf("SaveConversation: %v", err)
	}
	first.Close()

	second := NewDiskStorage(dir, 10)
	if err := second.Init(); err != nil {
		t.Fatalf("Init after restart: %v", err)
	}
	conv, err := second.GetConversation("42")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.Title != "Question" || len(conv.Messages) != 2 {
		t.Fatalf("unexpected conversation %+v", conv)
	}
}

func TestRejectsUnsafeKeys(t *testing.T) {
	disk := NewDiskStorage(t.TempDir(), 1)
	disk.Init()

	conv := sampleConversation("../escape", time.Now())
	if err := disk.SaveConversation(conv); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestAudioStores(t *testing.T) {
	stores := map[string]AudioStore{
		"memory": NewMemoryAudioStore(),
		"disk":   NewDiskAudioStore(t.TempDir()),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load("p1"); !errors.Is(err, ErrAudioNotFound) {
				t.Fatalf("expected ErrAudioNotFound, got %v", err)
			}
			if err := store.Save("p1", []byte("ID3")); err != nil {
				t.Fatalf("Save: %v", err)
			}
			data, err := store.Load("p1")
			if err != nil || string(data) != "ID3" {
				t.Fatalf("Load = %q, %v", data, err)
			}
			if err := store.Delete("p1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := store.Delete("p1"); err != nil {
				t.Fatalf("second Delete: %v", err)
			}
		})
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, _, err := New("redis", "", 0); !errors.Is(err, ErrStorageInit) {
		t.Fatalf("expected ErrStorageInit, got %v", err)
	}
}
