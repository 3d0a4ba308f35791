package storage

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAudioNotFound        = errors.New("audio not found")
	ErrInvalidData          = errors.New("invalid data")
	ErrStorageInit          = errors.New("storage initialization failed")
	ErrFileOperation        = errors.New("file operation failed")
)
