package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DiskAudioStore writes podcast audio to <dataDir>/audio/<noteID>.mp3.
type DiskAudioStore struct {
	dir string
}

func NewDiskAudioStore(dataDir string) *DiskAudioStore {
	return &DiskAudioStore{dir: filepath.Join(dataDir, "audio")}
}

func (a *DiskAudioStore) path(noteID string) string {
	return filepath.Join(a.dir, noteID+".mp3")
}

func (a *DiskAudioStore) Save(noteID string, data []byte) error {
	if err := validKey(noteID); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	if err := writeFileAtomic(a.path(noteID), data); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}

func (a *DiskAudioStore) Load(noteID string) ([]byte, error) {
	if err := validKey(noteID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.path(noteID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrAudioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return data, nil
}

func (a *DiskAudioStore) Delete(noteID string) error {
	if err := validKey(noteID); err != nil {
		return err
	}
	if err := os.Remove(a.path(noteID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}
	return nil
}
