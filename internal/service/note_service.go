package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notebook-client/internal/broadcast"
	"notebook-client/internal/model"
	"notebook-client/internal/notebook"
	"notebook-client/internal/storage"
	"notebook-client/pkg/logger"
)

// NoteBackend is the part of the backend API used by NoteService.
type NoteBackend interface {
	CreateNote(ctx context.Context, collectionID string, fileIDs []string, params model.NoteParameters) (string, error)
	GetNote(ctx context.Context, id string) (model.NoteArtifact, error)
	Podcast(ctx context.Context, id string) ([]byte, error)
	DeleteNote(ctx context.Context, id string) error
	ListNotes(ctx context.Context, notebookID string) ([]model.NoteArtifact, error)
}

type NoteOptions struct {
	PollInterval time.Duration
	// AudioURL maps a note id to the URL its audio is served from.
	AudioURL func(noteID string) string
	// OnPollError receives poll failures that are not a backend status the
	// poller understands. Polling for that note stops either way.
	OnPollError func(noteID string, err error)
}

// NoteService owns the notebook's note collection and the poll registry.
type NoteService struct {
	backend  NoteBackend
	audio    storage.AudioStore
	notebook *notebook.Context

	interval    time.Duration
	audioURL    func(string) string
	onPollError func(string, error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu sync.Mutex
	// notebookID is the notebook the collection belongs to.
	notebookID string
	notes      []model.NoteArtifact
	polls      map[string]*PollHandle
	updates    int
	closed     bool

	subject *broadcast.Subject[[]model.NoteArtifact]
}

func NewNoteService(backend NoteBackend, audio storage.AudioStore, nb *notebook.Context, opts NoteOptions) *NoteService {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 6 * time.Second
	}
	if opts.AudioURL == nil {
		opts.AudioURL = func(id string) string { return "/api/notes/" + id + "/audio" }
	}
	if opts.OnPollError == nil {
		opts.OnPollError = func(id string, err error) {
			logger.WithFields(logger.Fields{"note_id": id}).Errorf("Polling note failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &NoteService{
		backend:     backend,
		audio:       audio,
		notebook:    nb,
		interval:    opts.PollInterval,
		audioURL:    opts.AudioURL,
		onPollError: opts.OnPollError,
		ctx:         ctx,
		cancel:      cancel,
		notes:       []model.NoteArtifact{},
		polls:       make(map[string]*PollHandle),
		subject:     broadcast.NewSubject([]model.NoteArtifact{}),
	}
}

// Notes returns a copy of the current collection, newest first.
func (s *NoteService) Notes() []model.NoteArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneNotes(s.notes)
}

// Note returns a copy of one note.
func (s *NoteService) Note(id string) (model.NoteArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.ID == id {
			return n.Clone(), nil
		}
	}
	return model.NoteArtifact{}, ErrNoteNotFound
}

// Subscribe streams collection snapshots, starting with the current one.
// Snapshots are shared and must not be modified.
func (s *NoteService) Subscribe() (<-chan []model.NoteArtifact, func()) {
	return s.subject.Subscribe()
}

// Polling reports whether id has an active poll handle.
func (s *NoteService) Polling(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.polls[id]
	return ok
}

// Create submits a generation job for the selected sources and tracks the
// resulting note until it reaches a terminal status. Without a selected
// source it fails before any request is made.
func (s *NoteService) Create(ctx context.Context, params model.NoteParameters) (string, error) {
	if params == nil {
		return "", &model.ValidationError{Message: "note parameters are required"}
	}
	sources := s.notebook.SelectedSources()
	if len(sources) == 0 {
		return "", &model.ValidationError{Message: "select at least one source before creating a note", Err: ErrNoSources}
	}
	if err := params.Validate(); err != nil {
		return "", &model.ValidationError{Message: fmt.Sprintf("invalid %s parameters", params.NoteType()), Err: err}
	}

	notebookID := s.notebook.NotebookID()
	id, err := s.backend.CreateNote(ctx, notebookID, sources, params)
	if err != nil {
		return "", fmt.Errorf("create %s note: %w", params.NoteType(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	if !s.ownsLocked(notebookID) {
		// The notebook was switched while the request was in flight; the
		// note shows up when its notebook is loaded again.
		return id, nil
	}

	if idx := indexOfNote(s.notes, id); idx >= 0 {
		if s.notes[idx].Status.IsTerminal() {
			return id, nil
		}
	} else {
		placeholder := model.NoteArtifact{
			ID:               id,
			Type:             params.NoteType(),
			Status:           model.NoteStatusPending,
			CreatedAt:        time.Now(),
			ContainedFileIDs: sources,
		}
		notes := make([]model.NoteArtifact, 0, len(s.notes)+1)
		notes = append(notes, placeholder)
		notes = append(notes, s.notes...)
		s.setNotesLocked(notes)
	}
	s.startPollingLocked(id)

	logger.WithFields(logger.Fields{"note_id": id, "type": params.NoteType()}).Info("Note generation submitted")
	return id, nil
}

// Load fetches the notebook's notes from the backend and starts polling the
// pending ones. Switching to another notebook first drops the previous
// collection and its poll handles, so a failed fetch leaves it empty. Notes
// still tracked locally but missing from the fetched list, such as ones
// created while the fetch was running, are kept until their poll settles.
func (s *NoteService) Load(ctx context.Context) error {
	notebookID := s.notebook.NotebookID()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.notebookID != notebookID {
		s.stopAllLocked()
		s.notebookID = notebookID
		s.setNotesLocked([]model.NoteArtifact{})
	}
	s.mu.Unlock()

	notes, err := s.backend.ListNotes(ctx, notebookID)
	if err != nil {
		return fmt.Errorf("list notes of notebook %s: %w", notebookID, err)
	}

	for i, n := range notes {
		if n.Status == model.NoteStatusReady && n.Type.ProducesAudio() && s.audio != nil {
			if _, err := s.audio.Load(n.ID); err == nil {
				notes[i].AudioURL = s.audioURL(n.ID)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.notebookID != notebookID {
		// A later Load switched notebooks; its result wins.
		return nil
	}

	fetched := make(map[string]bool, len(notes))
	pending := make(map[string]bool, len(notes))
	for _, n := range notes {
		fetched[n.ID] = true
		if n.Status == model.NoteStatusPending {
			pending[n.ID] = true
		}
	}

	merged := make([]model.NoteArtifact, 0, len(s.notes)+len(notes))
	for _, n := range s.notes {
		if _, tracked := s.polls[n.ID]; tracked && !fetched[n.ID] {
			merged = append(merged, n)
			pending[n.ID] = true
		}
	}
	merged = append(merged, notes...)

	for id, h := range s.polls {
		if !pending[id] {
			delete(s.polls, id)
			h.Stop()
		}
	}

	s.setNotesLocked(merged)
	for id := range pending {
		s.startPollingLocked(id)
	}
	return nil
}

// Delete stops polling id, removes it from the collection and deletes it on
// the backend. Once Delete returns no poll request for id is in flight.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	h := s.polls[id]
	if h != nil {
		delete(s.polls, id)
		h.Stop()
	}
	idx := indexOfNote(s.notes, id)
	if idx >= 0 {
		s.setNotesLocked(withoutNote(s.notes, id))
	}
	s.mu.Unlock()

	if h != nil {
		<-h.Done()
	}
	if idx < 0 {
		return ErrNoteNotFound
	}

	if s.audio != nil {
		if err := s.audio.Delete(id); err != nil {
			logger.Warnf("Removing audio of note %s failed: %v", id, err)
		}
	}
	if err := s.backend.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

// Close stops every poll handle and waits for them to exit.
func (s *NoteService) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopAllLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.subject.Close()
}

// ownsLocked reports whether the collection belongs to notebookID. A service
// that has not loaded anything yet adopts it. Callers hold s.mu.
func (s *NoteService) ownsLocked(notebookID string) bool {
	if s.notebookID == "" {
		s.notebookID = notebookID
	}
	return s.notebookID == notebookID
}

func (s *NoteService) stopAllLocked() {
	for id, h := range s.polls {
		delete(s.polls, id)
		h.Stop()
	}
}

// setNotesLocked installs a new collection and broadcasts it. The slice must
// not be modified afterwards. Callers hold s.mu.
func (s *NoteService) setNotesLocked(notes []model.NoteArtifact) {
	s.notes = notes
	s.updates++
	s.subject.Publish(notes)
}

func indexOfNote(notes []model.NoteArtifact, id string) int {
	for i, n := range notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func withoutNote(notes []model.NoteArtifact, id string) []model.NoteArtifact {
	out := make([]model.NoteArtifact, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
