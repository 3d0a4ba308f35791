package service

import "errors"

var (
	ErrGenerating   = errors.New("a response is already being generated")
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoSources    = errors.New("no sources selected")
	ErrNoteNotFound = errors.New("note not found")
	ErrClosed       = errors.New("service closed")
)
